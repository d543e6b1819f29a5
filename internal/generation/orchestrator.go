// Package generation runs the resume generation state machine: it loads the profile and job,
// tailors the profile, produces LaTeX and records every status change on the resume.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/events"
	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/types"
)

// Store is the persistence the orchestrator needs. *db.DB and *db.MemoryStore implement it.
type Store interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
	GetJob(ctx context.Context, jobID, userID uuid.UUID) (*types.Job, error)
	CreateResume(ctx context.Context, userID uuid.UUID, jobID *uuid.UUID, template, mode string) (*types.Resume, error)
	RestartResume(ctx context.Context, id, userID uuid.UUID, staleAfter time.Duration) (*types.Resume, error)
	PatchResume(ctx context.Context, id uuid.UUID, attempt int, patch types.ResumePatch) error
	AppendLaTeX(ctx context.Context, id uuid.UUID, attempt int, delta string) error
}

// Tailor produces a job-tailored profile. *tailoring.Tailorer implements it.
type Tailor interface {
	Tailor(ctx context.Context, profile *types.Profile, job *types.Job) (*types.TailoredProfile, error)
}

// DefaultChunkEvery is how many streamed deltas pass between chunk count writes.
const DefaultChunkEvery = 10

// DefaultStaleAfter is how long a run may go without writing before a restart may supersede it.
const DefaultStaleAfter = 10 * time.Minute

// Config controls generation behavior.
type Config struct {
	// DefaultMode is used when a request names no mode.
	DefaultMode string
	// AITimeout bounds each AI call. Zero disables the bound.
	AITimeout time.Duration
	// ChunkEvery is the number of deltas between chunk count writes.
	ChunkEvery int
	// StaleAfter is the idle time after which an unfinished run counts as abandoned
	// and Restart may replace it.
	StaleAfter time.Duration
}

// Orchestrator starts and runs generation pipelines.
type Orchestrator struct {
	store     Store
	client    llm.Client
	tailor    Tailor
	publisher events.Publisher
	logger    *slog.Logger
	cfg       Config
	wg        sync.WaitGroup
}

// New creates an Orchestrator. client may be nil when only the template mode is used,
// and publisher may be nil when nobody subscribes to progress.
func New(store Store, client llm.Client, tailor Tailor, publisher events.Publisher, logger *slog.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = types.ModeTemplate
	}
	if cfg.ChunkEvery <= 0 {
		cfg.ChunkEvery = DefaultChunkEvery
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	return &Orchestrator{
		store:     store,
		client:    client,
		tailor:    tailor,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start creates a resume at status started and runs the pipeline in the background.
func (o *Orchestrator) Start(ctx context.Context, userID uuid.UUID, req types.StartResumeRequest) (*types.Resume, error) {
	if err := req.Validate(); err != nil {
		return nil, &InputError{Message: "invalid generation request", Cause: err}
	}
	if req.Template == "" {
		req.Template = types.DefaultTemplate
	}
	if req.Mode == "" {
		req.Mode = o.cfg.DefaultMode
	}
	if err := o.checkMode(req.Mode); err != nil {
		return nil, err
	}

	if req.JobID != nil {
		job, err := o.store.GetJob(ctx, *req.JobID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up job: %w", err)
		}
		if job == nil {
			return nil, &InputError{Message: "job not found"}
		}
	}

	resume, err := o.store.CreateResume(ctx, userID, req.JobID, req.Template, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create resume: %w", err)
	}
	o.publish(ctx, resume.ID, resume.Attempt, types.StatusStarted, 0, "")
	o.launch(ctx, resume)
	return resume, nil
}

// Restart resets a finished or abandoned resume and runs the whole pipeline again in the
// background. A superseded run keeps going until its next write, which fails with
// db.ErrStaleAttempt and stops it.
func (o *Orchestrator) Restart(ctx context.Context, userID, resumeID uuid.UUID) (*types.Resume, error) {
	resume, err := o.store.RestartResume(ctx, resumeID, userID, o.cfg.StaleAfter)
	if err != nil {
		return nil, err
	}
	o.publish(ctx, resume.ID, resume.Attempt, types.StatusStarted, 0, "")
	o.launch(ctx, resume)
	return resume, nil
}

// Wait blocks until every background run has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) checkMode(mode string) error {
	if mode != types.ModeTemplate && o.client == nil {
		return &InputError{Message: fmt.Sprintf("generation mode %q needs an AI client, none is configured", mode)}
	}
	return nil
}

// launch runs the pipeline detached from the request's cancellation.
func (o *Orchestrator) launch(ctx context.Context, resume *types.Resume) {
	runCtx := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_ = o.Run(runCtx, resume)
	}()
}

// Run executes the pipeline synchronously for resume at its current attempt.
// It returns the error that failed the run after recording it on the resume, or nil on success.
// A run superseded by a restart stops silently and returns nil.
func (o *Orchestrator) Run(ctx context.Context, resume *types.Resume) (err error) {
	r := &run{
		o:       o,
		id:      resume.ID,
		userID:  resume.UserID,
		jobID:   resume.JobID,
		mode:    resume.Mode,
		attempt: resume.Attempt,
		status:  types.StatusStarted,
		logger:  o.logger.With("resume_id", resume.ID, "attempt", resume.Attempt),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("generation panicked", "panic", rec, "stack", string(debug.Stack()))
			err = &Error{Message: "generation panicked", Cause: fmt.Errorf("%v", rec)}
			r.fail(ctx, err)
		}
	}()

	start := time.Now()
	if err := r.execute(ctx); err != nil {
		if errors.Is(err, db.ErrStaleAttempt) {
			r.logger.Info("run superseded by a restart, stopping")
			return nil
		}
		r.fail(ctx, err)
		return err
	}
	r.logger.Info("resume generated", "mode", r.mode, "duration", time.Since(start))
	return nil
}

// aiContext applies the configured AI timeout.
func (o *Orchestrator) aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.AITimeout > 0 {
		return context.WithTimeout(ctx, o.cfg.AITimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) publish(ctx context.Context, id uuid.UUID, attempt int, status types.GenerationStatus, chunks int, message string) {
	if o.publisher == nil {
		return
	}
	event := events.Event{
		ResumeID:   id,
		Attempt:    attempt,
		Status:     status,
		ChunkCount: chunks,
		Error:      message,
		At:         time.Now().UTC(),
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("failed to publish generation event", "resume_id", id, "status", status, "error", err)
	}
}

// loadInputs fetches the profile and, when jobID is set, the job concurrently.
func (o *Orchestrator) loadInputs(ctx context.Context, userID uuid.UUID, jobID *uuid.UUID) (*types.Profile, *types.Job, error) {
	var (
		profile *types.Profile
		job     *types.Job
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := o.store.GetProfile(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}
		if p == nil {
			return &UserError{Message: "Profile not found. Create a profile before generating a resume."}
		}
		profile = p
		return nil
	})
	if jobID != nil {
		g.Go(func() error {
			j, err := o.store.GetJob(gctx, *jobID, userID)
			if err != nil {
				return fmt.Errorf("failed to load job: %w", err)
			}
			if j == nil {
				return &UserError{Message: "Job not found."}
			}
			job = j
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return profile, job, nil
}

func marshalTailored(t *types.TailoredProfile) (json.RawMessage, error) {
	data, err := json.Marshal(t.Profile)
	if err != nil {
		return nil, &Error{Message: "failed to encode tailored profile", Cause: err}
	}
	return data, nil
}
