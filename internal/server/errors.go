// Package server provides the HTTP API for profiles, jobs and resume generation.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-studio/internal/compilation"
	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/generation"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		fieldErrs     validator.ValidationErrors
		inputErr      *generation.InputError
		sourceErr     *compilation.InputError
		compileErr    *compilation.CompilationError
		timeoutErr    *compilation.TimeoutError
		compileSvcErr *compilation.Error
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &fieldErrs), errors.As(err, &inputErr), errors.As(err, &sourceErr):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrInProgress):
		return http.StatusConflict
	case errors.As(err, &compileErr), errors.As(err, &timeoutErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &compileSvcErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the client-facing text for err. Internal errors are not described.
func errorMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return "validation failed: " + strings.Join(parts, ", ")
	}

	switch {
	case errors.Is(err, db.ErrNotFound):
		return "resource not found"
	case errors.Is(err, db.ErrInProgress):
		return "resume generation is still in progress"
	}

	var compileSvcErr *compilation.Error
	switch status := HTTPStatus(err); {
	case status == http.StatusInternalServerError:
		return "internal server error"
	case errors.As(err, &compileSvcErr):
		return "compilation service unavailable"
	}
	return err.Error()
}
