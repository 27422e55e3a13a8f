package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is the sentinel every ValidationError unwraps to
var ErrValidation = errors.New("validation error")

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains every field-level violation of an import request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "\n")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// BatchFailureError is the overall failure of an import in which at least one batch was rejected.
type BatchFailureError struct {
	Failed int
	Total  int
	First  error // first rejected batch, in batch order
}

func (e *BatchFailureError) Error() string {
	return fmt.Sprintf("%d of %d batches failed: %v", e.Failed, e.Total, e.First)
}

func (e *BatchFailureError) Unwrap() error { return e.First }
