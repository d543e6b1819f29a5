package types

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// GenerationStatus tracks the progress of a single generation run.
type GenerationStatus string

// Generation statuses in pipeline order. Failed is reachable from any non-terminal status.
const (
	StatusStarted          GenerationStatus = "started"
	StatusFetchingProfile  GenerationStatus = "fetching profile"
	StatusTailoringProfile GenerationStatus = "generating tailored profile"
	StatusGeneratingResume GenerationStatus = "generating tailored resume"
	StatusEnhancingResume  GenerationStatus = "enhancing resume with AI"
	StatusCompleted        GenerationStatus = "completed"
	StatusFailed           GenerationStatus = "failed"
)

// StatusOrder lists the non-failed statuses in progression order.
var StatusOrder = []GenerationStatus{
	StatusStarted,
	StatusFetchingProfile,
	StatusTailoringProfile,
	StatusGeneratingResume,
	StatusEnhancingResume,
	StatusCompleted,
}

// Rank returns the position of s in StatusOrder, or -1 for failed and unknown values.
func (s GenerationStatus) Rank() int {
	for i, st := range StatusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s GenerationStatus) Valid() bool {
	return s == StatusFailed || s.Rank() >= 0
}

// IsTerminal reports whether s is completed or failed.
func (s GenerationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a run may move from s to next.
// Forward moves are allowed (optional stages may be skipped), failed is reachable from any
// non-terminal status, and a restart moves a terminal status back to started.
func (s GenerationStatus) CanTransition(next GenerationStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.IsTerminal() {
		return next == StatusStarted
	}
	if next == StatusFailed {
		return true
	}
	return next.Rank() > s.Rank()
}

// Generation modes.
const (
	ModeTemplate = "template"
	ModeAI       = "ai"
	ModeEnhanced = "enhanced"
)

// DefaultTemplate is the only built-in LaTeX template.
const DefaultTemplate = "jake"

// Insight relates one job requirement to evidence in the profile.
type Insight struct {
	Requirement string `json:"requirement"`
	Match       string `json:"match"`
	Comment     string `json:"comment"`
}

// TailoredProfile is the output of the tailoring step.
type TailoredProfile struct {
	Profile  Profile   `json:"profile"`
	Insights []Insight `json:"insights,omitempty"`
}

// Resume is the persisted record of one resume generation.
// Attempt increases on every restart; writes from an older attempt are rejected.
type Resume struct {
	ID                  uuid.UUID         `json:"id"`
	UserID              uuid.UUID         `json:"user_id"`
	JobID               *uuid.UUID        `json:"job_id,omitempty"`
	Template            string            `json:"template"`
	Mode                string            `json:"mode"`
	Attempt             int               `json:"attempt"`
	LaTeXContent        string            `json:"latex_content"`
	TailoredProfile     json.RawMessage   `json:"tailored_profile,omitempty"`
	GenerationStatus    GenerationStatus  `json:"generation_status"`
	StatusBeforeFailure *GenerationStatus `json:"status_before_failure,omitempty"`
	GenerationError     *string           `json:"generation_error,omitempty"`
	ChunkCount          int               `json:"chunk_count"`
	PDFURL              *string           `json:"pdf_url,omitempty"`
	CompilationError    *string           `json:"user_resume_compilation_error_message,omitempty"`
	Insights            []Insight         `json:"insights,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// ResumePatch lists the fields a generation run may change. Nil fields are left untouched.
type ResumePatch struct {
	Status              *GenerationStatus
	StatusBeforeFailure *GenerationStatus
	GenerationError     *string
	LaTeXContent        *string
	ChunkCount          *int
	TailoredProfile     json.RawMessage
	Insights            []Insight
}

// StartResumeRequest is the request body for starting a generation.
type StartResumeRequest struct {
	JobID    *uuid.UUID `json:"job_id,omitempty"`
	Template string     `json:"template,omitempty" validate:"omitempty,oneof=jake"`
	Mode     string     `json:"mode,omitempty" validate:"omitempty,oneof=template ai enhanced"`
}

// Validate validates the StartResumeRequest using the validator.
func (r *StartResumeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// UpdateLaTeXRequest is the request body for a user edit of the LaTeX source.
type UpdateLaTeXRequest struct {
	LaTeXContent string `json:"latex_content" validate:"required"`
}

// Validate validates the UpdateLaTeXRequest using the validator.
func (r *UpdateLaTeXRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
