package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/config"
	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/generation"
	"github.com/jonathan/resume-studio/internal/server"
	"github.com/jonathan/resume-studio/internal/server/ratelimit"
	"github.com/jonathan/resume-studio/internal/tailoring"
)

var (
	servePort    int
	serveMemory  bool
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the application API server",
	Long: `Start the HTTP API for profiles, jobs and resume generation.
Resumes are generated in the background; progress is available from GET /resumes/{id}
and as Server-Sent Events from GET /resumes/{id}/events.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Use the in-memory store instead of PostgreSQL")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	var tailor generation.Tailor
	if client != nil {
		defer client.Close()
		tailor = tailoring.NewTailorer(client, logger)
	} else {
		logger.Warn("GEMINI_API_KEY not set, only template generation without a job is available")
	}

	bus, closeBus, err := newEventBus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	orch := generation.New(store, client, tailor, bus, logger, generation.Config{
		DefaultMode: cfg.GenerationMode,
		AITimeout:   cfg.GenerationAITimeout.Std(),
		StaleAfter:  cfg.GenerationStaleAfter.Std(),
	})

	limiter := ratelimit.NewLimiter(ratelimit.LoadConfig())
	srv, err := server.New(server.Options{
		Store:     store,
		Generator: orch,
		Compiler:  newCompiler(cfg, logger),
		Events:    bus,
		Auth:      server.NewJWTService(jwtConfig).AsTokenValidator(),
		Limiter:   limiter,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	runErr := srv.Run(ctx, ":"+strconv.Itoa(cfg.Port))
	logger.Info("waiting for in-flight generations")
	orch.Wait()
	return runErr
}

// appStore is the full persistence surface used by the serve and generate commands.
type appStore interface {
	server.Store
	generation.Store
}

func openStore(ctx context.Context, cfg *config.Config) (appStore, func(), error) {
	if serveMemory {
		return db.NewMemoryStore(), func() {}, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required (or use --memory)")
	}
	if serveMigrate {
		if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, database.Close, nil
}
