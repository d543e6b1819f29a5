package llm

import (
	"errors"
	"fmt"
)

// ErrNoStructuredOutput is matched by every NoObjectError.
var ErrNoStructuredOutput = errors.New("no structured output generated")

// ErrEmptyCompletion is returned when a streamed completion produced no text.
var ErrEmptyCompletion = errors.New("AI returned an empty completion")

// NoObjectError is returned when the model output does not parse or does not match the declared schema.
type NoObjectError struct {
	Text  string
	Cause error
}

func (e *NoObjectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", ErrNoStructuredOutput, e.Cause)
	}
	return ErrNoStructuredOutput.Error()
}

func (e *NoObjectError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrNoStructuredOutput) hold for any NoObjectError.
func (e *NoObjectError) Is(target error) bool {
	return target == ErrNoStructuredOutput
}
