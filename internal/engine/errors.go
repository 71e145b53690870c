package engine

import (
	"errors"
	"fmt"
)

// ===== ENGINE ERROR TAXONOMY =====

var (
	// ErrAttemptsExhausted rejects a submission once the attempt limit is
	// reached. Terminal for the student, not retryable.
	ErrAttemptsExhausted = errors.New("No more attempts remaining")

	// ErrAlreadyCorrect rejects any submission after a correct answer; the
	// stored answer is frozen even if attempts remain.
	ErrAlreadyCorrect = errors.New("You have already correctly answered this question.")

	// ErrCorruptQuestion marks a document whose type tag is missing or
	// unrecognized. Fatal for the question instance until an author fixes
	// the content.
	ErrCorruptQuestion = errors.New("Question is broken: invalid question type")
)

// FieldError is a client-correctable validation failure on one field of a
// submitted answer.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("`%s` %s", e.Field, e.Message)
}

func newFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}
