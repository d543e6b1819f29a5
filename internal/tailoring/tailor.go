// Package tailoring selects and rewords a job-relevant subset of a profile with AI,
// then verifies the result against the source profile.
package tailoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/resume-studio/internal/ingestion"
	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/prompts"
	"github.com/jonathan/resume-studio/internal/schemas"
	"github.com/jonathan/resume-studio/internal/types"
)

// Tailorer runs the tailoring step.
type Tailorer struct {
	client llm.Client
	tier   llm.ModelTier
	schema string
	logger *slog.Logger
}

// NewTailorer creates a Tailorer using the embedded tailored profile schema.
func NewTailorer(client llm.Client, logger *slog.Logger) *Tailorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tailorer{
		client: client,
		tier:   llm.TierStandard,
		schema: schemas.MustLoad(schemas.TailoredProfile),
		logger: logger,
	}
}

// Tailor returns a job-tailored subset of profile.
// Output that does not match the schema yields an error wrapping llm.ErrNoStructuredOutput.
func (t *Tailorer) Tailor(ctx context.Context, profile *types.Profile, job *types.Job) (*types.TailoredProfile, error) {
	if profile == nil {
		return nil, &Error{Message: "profile is required"}
	}
	if job == nil {
		return nil, &Error{Message: "job is required"}
	}

	description, check, err := ingestion.PromptJobDescription(job.Description)
	if err != nil {
		return nil, &Error{Message: "could not read the job description", Cause: err}
	}
	if !check.Safe {
		t.logger.Warn("job description contains instruction-like text", "job_id", job.ID, "phrases", check.Keywords)
	}

	prompt, err := prompts.TailorProfile(prompts.TailorInput{
		Profile:        profile,
		JobTitle:       job.Title,
		Company:        job.Company,
		JobDescription: description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build tailoring prompt: %w", err)
	}

	text, err := t.client.GenerateObject(ctx, prompt, t.schema, t.tier)
	if err != nil {
		if errors.Is(err, llm.ErrNoStructuredOutput) {
			return nil, &Error{Message: "AI could not produce a tailored profile", Cause: err}
		}
		return nil, &Error{Message: "AI tailoring request failed", Cause: err}
	}

	var tailored types.TailoredProfile
	if err := json.Unmarshal([]byte(text), &tailored); err != nil {
		return nil, &Error{
			Message: "AI could not produce a tailored profile",
			Cause:   &llm.NoObjectError{Text: text, Cause: err},
		}
	}

	for i := range tailored.Profile.WorkExperience {
		tailored.Profile.WorkExperience[i].Normalize()
	}
	filtered := FilterToSource(profile, &tailored.Profile)

	t.logger.Info("tailored profile",
		"work_in", len(tailored.Profile.WorkExperience), "work_kept", len(filtered.WorkExperience),
		"projects_in", len(tailored.Profile.Projects), "projects_kept", len(filtered.Projects),
		"skills_kept", len(filtered.Skills), "insights", len(tailored.Insights))

	return &types.TailoredProfile{
		Profile:  *filtered,
		Insights: tailored.Insights,
	}, nil
}
