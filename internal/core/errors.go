package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the generation pipeline. Handlers map these
// to HTTP statuses; the orchestrator uses them to decide between skipping a
// chunk and failing the whole job.
var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyDocument   = errors.New("no text extracted from document")
	ErrMalformedOutput = errors.New("model returned malformed output")
	ErrUnreachable     = errors.New("endpoint unreachable")
)

// ConfigError means a required secret or endpoint is missing. It is raised
// before any side effect and is never retried.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing env %s", e.Key)
}

// ValidationError rejects a whole suggestions batch whose shape does not
// match the expected schema.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid suggestions payload: %s", e.Reason)
}

// IsValidationError reports whether err is a batch-level validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
