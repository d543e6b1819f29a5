package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jonathan/resume-studio/internal/compilation"
	"github.com/jonathan/resume-studio/internal/config"
	"github.com/jonathan/resume-studio/internal/events"
	"github.com/jonathan/resume-studio/internal/llm"
)

// loadConfig loads the config file and environment, then applies the logging flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}

// newLogger builds the process logger.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// llmConfig applies the configured model overrides to the default tiers.
func llmConfig(cfg *config.Config) *llm.Config {
	out := llm.DefaultConfig()
	for tier, model := range cfg.Models {
		out = out.WithModel(llm.ModelTier(tier), model)
	}
	return out
}

// newLLMClient returns nil when no API key is configured.
func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil
	}
	client, err := llm.NewGeminiClient(ctx, llmConfig(cfg), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

func localCompiler(cfg *config.Config, logger *slog.Logger) *compilation.Compiler {
	return compilation.NewCompiler(compilation.Config{
		Engine:        cfg.LaTeXEngine,
		Timeout:       cfg.LaTeXTimeout.Std(),
		MaxConcurrent: int64(cfg.LaTeXMaxConcurrent),
	}, logger)
}

// pdfCompiler is satisfied by both compiler implementations.
type pdfCompiler interface {
	Compile(ctx context.Context, source string) ([]byte, error)
}

// newCompiler uses the remote compilation service when one is configured.
func newCompiler(cfg *config.Config, logger *slog.Logger) pdfCompiler {
	if cfg.CompileServiceURL != "" {
		logger.Info("using remote compilation service", "url", cfg.CompileServiceURL)
		return compilation.NewClient(cfg.CompileServiceURL, 0)
	}
	compiler := localCompiler(cfg, logger)
	if err := compiler.Available(); err != nil {
		logger.Warn("LaTeX toolchain unavailable, compilation requests will fail", "error", err)
	}
	return compiler
}

// eventBus publishes and subscribes to status events.
type eventBus interface {
	events.Publisher
	events.Subscriber
}

// newEventBus connects to Redis when configured and falls back to the in-process broker.
func newEventBus(ctx context.Context, cfg *config.Config, logger *slog.Logger) (eventBus, func(), error) {
	if cfg.RedisURL == "" {
		return events.NewBroker(), func() {}, nil
	}
	broker, err := events.NewRedisBroker(ctx, cfg.RedisURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return broker, func() {
		if err := broker.Close(); err != nil {
			logger.Warn("failed to close Redis connection", "error", err)
		}
	}, nil
}
