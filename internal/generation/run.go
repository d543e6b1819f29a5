package generation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/ingestion"
	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/prompts"
	"github.com/jonathan/resume-studio/internal/rendering"
	"github.com/jonathan/resume-studio/internal/types"
)

// run is the state of one pipeline execution. Writes are sequential and all carry attempt.
type run struct {
	o       *Orchestrator
	id      uuid.UUID
	userID  uuid.UUID
	jobID   *uuid.UUID
	mode    string
	attempt int
	status  types.GenerationStatus
	chunks  int
	logger  *slog.Logger
}

func (r *run) execute(ctx context.Context) error {
	if err := r.advance(ctx, types.StatusFetchingProfile); err != nil {
		return err
	}
	profile, job, err := r.o.loadInputs(ctx, r.userID, r.jobID)
	if err != nil {
		return err
	}

	if err := r.advance(ctx, types.StatusTailoringProfile); err != nil {
		return err
	}
	if job != nil {
		profile, err = r.tailorProfile(ctx, profile, job)
		if err != nil {
			return err
		}
	}

	if err := r.advance(ctx, types.StatusGeneratingResume); err != nil {
		return err
	}
	switch r.mode {
	case types.ModeAI:
		err = r.streamLaTeX(ctx, func() (string, error) {
			in, err := r.latexInput(profile, job, "")
			if err != nil {
				return "", err
			}
			return prompts.GenerateLaTeX(in)
		})
	case types.ModeEnhanced:
		err = r.renderAndEnhance(ctx, profile, job)
	default:
		err = r.renderTemplate(ctx, profile)
	}
	if err != nil {
		return err
	}

	return r.advance(ctx, types.StatusCompleted)
}

// advance persists the next status, then publishes it.
func (r *run) advance(ctx context.Context, next types.GenerationStatus) error {
	if !r.status.CanTransition(next) {
		return &Error{Message: "invalid status transition from " + string(r.status) + " to " + string(next)}
	}
	if err := r.o.store.PatchResume(ctx, r.id, r.attempt, types.ResumePatch{Status: &next}); err != nil {
		return err
	}
	r.status = next
	r.o.publish(ctx, r.id, r.attempt, next, r.chunks, "")
	r.logger.Debug("generation status changed", "status", next)
	return nil
}

// fail records err on the resume. The status before failure is the last one persisted.
func (r *run) fail(ctx context.Context, err error) {
	message, known := failureMessage(err)
	if known {
		r.logger.Warn("resume generation failed", "status", r.status, "error", err)
	} else {
		r.logger.Error("resume generation failed unexpectedly", "status", r.status, "error", err)
	}

	failed := types.StatusFailed
	before := r.status
	if !before.CanTransition(failed) {
		r.logger.Error("cannot record failure from status", "status", before)
		return
	}
	patchErr := r.o.store.PatchResume(ctx, r.id, r.attempt, types.ResumePatch{
		Status:              &failed,
		StatusBeforeFailure: &before,
		GenerationError:     &message,
	})
	if patchErr != nil {
		if !errors.Is(patchErr, db.ErrStaleAttempt) {
			r.logger.Error("failed to record generation failure", "error", patchErr)
		}
		return
	}
	r.status = failed
	r.o.publish(ctx, r.id, r.attempt, failed, r.chunks, message)
}

func (r *run) tailorProfile(ctx context.Context, profile *types.Profile, job *types.Job) (*types.Profile, error) {
	if r.o.tailor == nil {
		return nil, &UserError{Message: "AI tailoring is not configured"}
	}
	aiCtx, cancel := r.o.aiContext(ctx)
	defer cancel()

	tailored, err := r.o.tailor.Tailor(aiCtx, profile, job)
	if err != nil {
		return nil, err
	}
	raw, err := marshalTailored(tailored)
	if err != nil {
		return nil, err
	}
	insights := tailored.Insights
	if insights == nil {
		insights = []types.Insight{}
	}
	if err := r.o.store.PatchResume(ctx, r.id, r.attempt, types.ResumePatch{
		TailoredProfile: raw,
		Insights:        insights,
	}); err != nil {
		return nil, err
	}
	return &tailored.Profile, nil
}

func (r *run) renderTemplate(ctx context.Context, profile *types.Profile) error {
	latex, err := rendering.RenderProfile(profile)
	if err != nil {
		return err
	}
	return r.o.store.PatchResume(ctx, r.id, r.attempt, types.ResumePatch{LaTeXContent: &latex})
}

func (r *run) renderAndEnhance(ctx context.Context, profile *types.Profile, job *types.Job) error {
	latex, err := rendering.RenderProfile(profile)
	if err != nil {
		return err
	}
	if err := r.o.store.PatchResume(ctx, r.id, r.attempt, types.ResumePatch{LaTeXContent: &latex}); err != nil {
		return err
	}
	if err := r.advance(ctx, types.StatusEnhancingResume); err != nil {
		return err
	}
	return r.streamLaTeX(ctx, func() (string, error) {
		in, err := r.latexInput(profile, job, latex)
		if err != nil {
			return "", err
		}
		return prompts.EnhanceLaTeX(in)
	})
}

// streamLaTeX replaces the stored LaTeX with a streamed completion, appending every delta.
func (r *run) streamLaTeX(ctx context.Context, buildPrompt func() (string, error)) error {
	if r.o.client == nil {
		return &UserError{Message: "AI generation is not configured"}
	}
	prompt, err := buildPrompt()
	if err != nil {
		return &Error{Message: "failed to build prompt", Cause: err}
	}

	empty := ""
	zero := 0
	if err := r.o.store.PatchResume(ctx, r.id, r.attempt, types.ResumePatch{LaTeXContent: &empty, ChunkCount: &zero}); err != nil {
		return err
	}
	r.chunks = 0

	sink := &latexSink{run: r, ctx: ctx, every: r.o.cfg.ChunkEvery}
	aiCtx, cancel := r.o.aiContext(ctx)
	defer cancel()

	full, err := r.o.client.StreamContent(aiCtx, prompt, llm.TierAdvanced, sink.write)
	if err != nil {
		return err
	}
	if err := sink.flush(); err != nil {
		return err
	}

	cleaned := llm.StripCodeFence(full)
	if cleaned == "" {
		return llm.ErrEmptyCompletion
	}
	if cleaned != full {
		return r.o.store.PatchResume(ctx, r.id, r.attempt, types.ResumePatch{LaTeXContent: &cleaned})
	}
	return nil
}

func (r *run) latexInput(profile *types.Profile, job *types.Job, latex string) (prompts.LaTeXInput, error) {
	in := prompts.LaTeXInput{Profile: profile, LaTeX: latex}
	if job == nil {
		return in, nil
	}
	description, check, err := ingestion.PromptJobDescription(job.Description)
	if err != nil {
		return in, &UserError{Message: "Could not read the job description.", Cause: err}
	}
	if !check.Safe {
		r.logger.Warn("job description contains instruction-like text", "phrases", check.Keywords)
	}
	in.JobTitle = job.Title
	in.JobDescription = description
	return in, nil
}

// latexSink persists streamed deltas. Every delta is appended; the chunk count, which
// counts deltas received, is written once per every deltas and at the end of the stream.
type latexSink struct {
	run     *run
	ctx     context.Context
	every   int
	deltas  int
	written int
}

func (s *latexSink) write(delta string) error {
	if delta == "" {
		return nil
	}
	if err := s.run.o.store.AppendLaTeX(s.ctx, s.run.id, s.run.attempt, delta); err != nil {
		return err
	}
	s.deltas++
	if s.deltas%s.every == 0 {
		return s.flush()
	}
	return nil
}

func (s *latexSink) flush() error {
	if s.deltas == s.written {
		return nil
	}
	count := s.deltas
	if err := s.run.o.store.PatchResume(s.ctx, s.run.id, s.run.attempt, types.ResumePatch{ChunkCount: &count}); err != nil {
		return err
	}
	s.written = count
	s.run.chunks = count
	s.run.o.publish(s.ctx, s.run.id, s.run.attempt, s.run.status, count, "")
	return nil
}
