// Package latexserver is the standalone LaTeX to PDF compilation service.
// It accepts raw LaTeX as the request body and answers with the compiled PDF.
package latexserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/resume-studio/internal/compilation"
	"github.com/jonathan/resume-studio/internal/server/ratelimit"
)

// Compiler turns LaTeX source into a PDF.
type Compiler interface {
	Compile(ctx context.Context, source string) ([]byte, error)
}

// DefaultMaxBodyBytes bounds the request body when no limit is configured.
const DefaultMaxBodyBytes = compilation.DefaultMaxSourceBytes

// Options configures the service handler.
type Options struct {
	MaxBodyBytes int64
	// Limiter may be nil to disable rate limiting.
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

type errorBody = compilation.ErrorResponse

type service struct {
	compiler Compiler
	maxBody  int64
	logger   *slog.Logger
}

// NewHandler returns the service routes: POST /latex/compile and GET /health.
func NewHandler(compiler Compiler, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &service{compiler: compiler, maxBody: opts.MaxBodyBytes, logger: opts.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+compilation.CompilePath, s.handleCompile)
	mux.HandleFunc("GET /health", s.handleHealth)

	var handler http.Handler = mux
	if opts.Limiter != nil {
		handler = ratelimit.Middleware(opts.Limiter, opts.Logger)(handler)
	}
	return handler
}

func (s *service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *service) handleCompile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("LaTeX source exceeds %d bytes", tooLarge.Limit)})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read request body", Details: err.Error()})
		return
	}

	start := time.Now()
	pdf, err := s.compiler.Compile(r.Context(), string(body))
	if err != nil {
		s.writeCompileError(w, err)
		return
	}
	s.logger.Info("compiled document", "source_bytes", len(body), "pdf_bytes", len(pdf), "duration", time.Since(start))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=document.pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		s.logger.Warn("failed to write PDF", "error", err)
	}
}

// writeCompileError answers 400 for unusable input and 500 for everything else.
// Toolchain output is passed through verbatim in details.
func (s *service) writeCompileError(w http.ResponseWriter, err error) {
	var (
		inputErr   *compilation.InputError
		compileErr *compilation.CompilationError
		timeoutErr *compilation.TimeoutError
	)
	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: inputErr.Message})
	case errors.As(err, &compileErr):
		s.logger.Info("compilation rejected", "error", compileErr.Message)
		message := compileErr.Message
		if message == "" {
			message = "LaTeX compilation failed"
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: message, Details: compileErr.LogOutput, Kind: compilation.KindCompilation})
	case errors.As(err, &timeoutErr):
		s.logger.Warn("compilation timed out", "timeout", timeoutErr.Timeout)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: timeoutErr.Error(), Details: timeoutErr.LogOutput, Kind: compilation.KindTimeout})
	default:
		s.logger.Error("compilation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal compilation error", Kind: compilation.KindInternal})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves handler on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("LaTeX service starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("LaTeX service error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("LaTeX service shutdown failed: %w", err)
	}
	logger.Info("LaTeX service stopped")
	return nil
}
