package compilation

import (
	"fmt"
	"time"
)

// InputError is returned for source the compiler refuses to run, such as empty or oversized input.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid LaTeX input: %s", e.Message)
}

// CompilationError is returned when the toolchain rejects the source.
// LogOutput holds the toolchain output verbatim; Message summarises its error lines.
type CompilationError struct {
	Message   string
	LogOutput string
	Cause     error
}

func (e *CompilationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("LaTeX compilation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("LaTeX compilation error: %s", e.Message)
}

func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// TimeoutError is returned when the toolchain exceeds its wall-clock budget.
type TimeoutError struct {
	Timeout   time.Duration
	LogOutput string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("LaTeX compilation timed out after %s", e.Timeout)
}

// Error is an internal compilation service failure.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compilation service error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("compilation service error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
