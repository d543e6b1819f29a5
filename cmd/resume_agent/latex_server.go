package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/latexserver"
	"github.com/jonathan/resume-studio/internal/server/ratelimit"
)

var latexServerPort int

var latexServerCmd = &cobra.Command{
	Use:   "latex-server",
	Short: "Start the standalone LaTeX compilation service",
	Long: `Start a stateless HTTP service that compiles LaTeX to PDF.
POST /latex/compile takes the raw LaTeX source as a text/plain body and returns application/pdf.`,
	RunE: runLaTeXServer,
}

func init() {
	latexServerCmd.Flags().IntVar(&latexServerPort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(latexServerCmd)
}

func runLaTeXServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if latexServerPort != 0 {
		cfg.LaTeXPort = latexServerPort
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	compiler := localCompiler(cfg, logger)
	if err := compiler.Available(); err != nil {
		return fmt.Errorf("cannot start LaTeX service: %w", err)
	}

	limiter := ratelimit.NewLimiter(ratelimit.LoadConfig())
	defer limiter.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := latexserver.NewHandler(compiler, latexserver.Options{Limiter: limiter, Logger: logger})
	return latexserver.ListenAndServe(ctx, ":"+strconv.Itoa(cfg.LaTeXPort), handler, logger)
}
