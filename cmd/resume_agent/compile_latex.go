package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/compilation"
)

var compileLaTeXCmd = &cobra.Command{
	Use:   "compile-latex",
	Short: "Compile a .tex file to PDF",
	Long:  "Compiles a LaTeX file with the configured toolchain, or with the compilation service when COMPILE_SERVICE_URL is set.",
	RunE:  runCompileLaTeX,
}

var (
	compileLaTeXInput  string
	compileLaTeXOutput string
)

func init() {
	compileLaTeXCmd.Flags().StringVarP(&compileLaTeXInput, "in", "i", "", "Path to .tex file (required)")
	compileLaTeXCmd.Flags().StringVarP(&compileLaTeXOutput, "out", "o", "resume.pdf", "Path to output PDF")
	_ = compileLaTeXCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(compileLaTeXCmd)
}

func runCompileLaTeX(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	source, err := os.ReadFile(compileLaTeXInput)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", compileLaTeXInput, err)
	}

	pdf, err := newCompiler(cfg, logger).Compile(cmd.Context(), string(source))
	if err != nil {
		var compileErr *compilation.CompilationError
		if errors.As(err, &compileErr) && compileErr.LogOutput != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), compileErr.LogOutput)
		}
		return err
	}
	return writeOutput(cmd, compileLaTeXOutput, pdf)
}
