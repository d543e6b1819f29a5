package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Job is a job posting imported by a user.
type Job struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Company     string    `json:"company,omitempty"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateJobRequest is the request body for importing a job posting.
// Description may be plain text or HTML.
type CreateJobRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Company     string `json:"company,omitempty" validate:"max=300"`
	Description string `json:"description" validate:"required"`
	URL         string `json:"url,omitempty" validate:"omitempty,url"`
}

// Validate validates the CreateJobRequest using the validator.
func (r *CreateJobRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
