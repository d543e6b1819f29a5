package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/events"
	"github.com/jonathan/resume-studio/internal/server/middleware"
	"github.com/jonathan/resume-studio/internal/server/ratelimit"
	"github.com/jonathan/resume-studio/internal/types"
)

// Store is the persistence the API needs. *db.DB and *db.MemoryStore implement it.
type Store interface {
	UpsertProfile(ctx context.Context, userID uuid.UUID, profile *types.Profile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)

	CreateJob(ctx context.Context, userID uuid.UUID, req *types.CreateJobRequest) (*types.Job, error)
	GetJob(ctx context.Context, jobID, userID uuid.UUID) (*types.Job, error)
	ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]types.Job, error)

	GetResume(ctx context.Context, id, userID uuid.UUID) (*types.Resume, error)
	ListResumes(ctx context.Context, filters db.ResumeFilters) ([]types.Resume, error)
	UpdateLaTeX(ctx context.Context, id, userID uuid.UUID, latex string) error
	SetResumePDF(ctx context.Context, id, userID uuid.UUID, pdf []byte) error
	SetCompilationError(ctx context.Context, id, userID uuid.UUID, message string) error
	GetResumePDF(ctx context.Context, id, userID uuid.UUID) ([]byte, error)
	DeleteResume(ctx context.Context, id, userID uuid.UUID) error
}

// Generator starts generation runs. *generation.Orchestrator implements it.
type Generator interface {
	Start(ctx context.Context, userID uuid.UUID, req types.StartResumeRequest) (*types.Resume, error)
	Restart(ctx context.Context, userID, resumeID uuid.UUID) (*types.Resume, error)
}

// Compiler turns LaTeX source into a PDF. *compilation.Compiler and *compilation.Client implement it.
type Compiler interface {
	Compile(ctx context.Context, source string) ([]byte, error)
}

// DefaultKeepAlive is the interval between SSE keepalive comments.
const DefaultKeepAlive = 15 * time.Second

// Options holds the server's collaborators.
type Options struct {
	Store     Store
	Generator Generator
	Compiler  Compiler
	// Events may be nil, in which case the events endpoint is unavailable.
	Events events.Subscriber
	Auth   middleware.TokenValidator
	// Limiter may be nil to disable rate limiting.
	Limiter   *ratelimit.Limiter
	Logger    *slog.Logger
	KeepAlive time.Duration
}

// Server is the application HTTP API.
type Server struct {
	store     Store
	generator Generator
	compiler  Compiler
	events    events.Subscriber
	auth      middleware.TokenValidator
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	keepAlive time.Duration
	handler   http.Handler
}

// New creates a Server and builds its routes.
func New(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Generator == nil || opts.Auth == nil {
		return nil, errors.New("server: store, generator and auth are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}

	s := &Server{
		store:     opts.Store,
		generator: opts.Generator,
		compiler:  opts.Compiler,
		events:    opts.Events,
		auth:      opts.Auth,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
		keepAlive: opts.KeepAlive,
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("GET /profile", s.handleGetProfile)
	api.HandleFunc("PUT /profile", s.handlePutProfile)

	api.HandleFunc("POST /jobs", s.handleCreateJob)
	api.HandleFunc("GET /jobs", s.handleListJobs)
	api.HandleFunc("GET /jobs/{id}", s.handleGetJob)

	api.HandleFunc("POST /resumes", s.handleStartResume)
	api.HandleFunc("GET /resumes", s.handleListResumes)
	api.HandleFunc("GET /resumes/{id}", s.handleGetResume)
	api.HandleFunc("DELETE /resumes/{id}", s.handleDeleteResume)
	api.HandleFunc("POST /resumes/{id}/restart", s.handleRestartResume)
	api.HandleFunc("PUT /resumes/{id}/latex", s.handleUpdateLaTeX)
	api.HandleFunc("POST /resumes/{id}/compile", s.handleCompileResume)
	api.HandleFunc("GET /resumes/{id}/pdf", s.handleGetPDF)
	api.HandleFunc("GET /resumes/{id}/events", s.handleResumeEvents)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/", middleware.AuthMiddleware(s.auth)(api))

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = ratelimit.Middleware(s.limiter, s.logger)(handler)
	}
	return s.withLogging(s.withCORS(handler))
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: event streams stay open for the length of a run.
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps event streams working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status and a client-safe message. Server errors are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.errorResponse(w, status, errorMessage(err))
}

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 2 << 20

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}

// requestUser returns the authenticated user for r.
func (s *Server) requestUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}
