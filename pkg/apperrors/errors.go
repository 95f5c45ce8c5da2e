package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey    = errors.New("LLM API key is not configured")
	ErrUnsupportedType  = errors.New("unsupported type")
	ErrInvalidRowLimit  = errors.New("row limit out of range")
	ErrInvalidDateRange = errors.New("invalid date range")
)

// Kind classifies a pipeline failure by the stage that produced it.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindQuery             Kind = "query"
	KindGenerationTimeout Kind = "generation_timeout"
	KindGeneration        Kind = "generation"
	KindParse             Kind = "parse"
	KindSchema            Kind = "schema"
	KindPersistence       Kind = "persistence"
)

// StageError is returned by every pipeline stage.
// Message is safe to show to callers; Cause is kept for logs and errors.Is/As.
type StageError struct {
	Kind    Kind
	Message string
	Details []string
	Cause   error

	// Payload carries already-computed output that should still reach the caller,
	// e.g. the parsed advice when only the write-back failed.
	Payload any
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

func newStageError(kind Kind, message string, cause error) *StageError {
	return &StageError{Kind: kind, Message: message, Cause: cause}
}

func NewValidationError(message string, cause error) *StageError {
	return newStageError(KindValidation, message, cause)
}

func NewQueryError(cause error) *StageError {
	return newStageError(KindQuery, "Failed to query biometric data", cause)
}

// NewGenerationTimeoutError builds the timeout error, e.g. "OpenAI API timeout".
func NewGenerationTimeoutError(provider string, cause error) *StageError {
	return newStageError(KindGenerationTimeout, provider+" API timeout", cause)
}

func NewGenerationError(provider string, cause error) *StageError {
	msg := provider + " API error"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return newStageError(KindGeneration, msg, cause)
}

func NewParseError(cause error) *StageError {
	return newStageError(KindParse, "Invalid JSON response", cause)
}

func NewSchemaError(cause error) *StageError {
	return newStageError(KindSchema, "Unexpected response structure", cause)
}

// NewPersistenceError builds the write-back error, e.g. "BigQuery insert failed".
func NewPersistenceError(warehouse string, details []string, cause error) *StageError {
	err := newStageError(KindPersistence, warehouse+" insert failed", cause)
	err.Details = details
	return err
}

// KindOf returns the Kind of the first StageError in err's chain, or "" if none.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
