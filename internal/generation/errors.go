package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/tailoring"
)

// genericFailureMessage is stored when a run fails for a reason the user cannot act on.
const genericFailureMessage = "An unexpected error occurred while generating the resume. Please try again."

// UserError is a failure whose message is safe to store on the resume and show to the user.
type UserError struct {
	Message string
	Cause   error
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// InputError is returned by Start and Restart for requests that cannot begin a run.
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InputError) Unwrap() error {
	return e.Cause
}

// Error is an internal orchestration failure.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// failureMessage returns the generationError text for err and whether err was expected.
func failureMessage(err error) (string, bool) {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Message, true
	}
	var tailorErr *tailoring.Error
	if errors.As(err, &tailorErr) {
		return tailorErr.Message, true
	}
	switch {
	case errors.Is(err, llm.ErrNoStructuredOutput):
		return "AI did not return a usable result", true
	case errors.Is(err, llm.ErrEmptyCompletion):
		return llm.ErrEmptyCompletion.Error(), true
	case errors.Is(err, context.DeadlineExceeded):
		return "AI request timed out", true
	}
	return genericFailureMessage, false
}
