package model

import (
	"context"
	"errors"
)

// Error taxonomy. Callers wrap these with fmt.Errorf("...: %w") and match with errors.Is.
var (
	ErrEmptyInput            = errors.New("no analyzable text")
	ErrNonEnglish            = errors.New("text is not English")
	ErrLanguageIndeterminate = errors.New("language could not be determined")
	ErrModelUnavailable      = errors.New("model artifact unavailable")
	ErrSchemaMismatch        = errors.New("vector schema mismatch")
	ErrInvalidParameter      = errors.New("invalid parameter")
)

// Reason is a stable, user-visible code for a rejected or aborted call
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonEmptyInput            Reason = "empty_input"
	ReasonNonEnglish            Reason = "non_english"
	ReasonLanguageIndeterminate Reason = "language_indeterminate"
	ReasonModelUnavailable      Reason = "model_unavailable"
	ReasonSchemaMismatch        Reason = "schema_mismatch"
	ReasonInvalidParameter      Reason = "invalid_parameter"
	ReasonCancelled             Reason = "cancelled"
	ReasonInternal              Reason = "internal"
)

// ReasonOf maps an error to its reason code
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrEmptyInput):
		return ReasonEmptyInput
	case errors.Is(err, ErrNonEnglish):
		return ReasonNonEnglish
	case errors.Is(err, ErrLanguageIndeterminate):
		return ReasonLanguageIndeterminate
	case errors.Is(err, ErrModelUnavailable):
		return ReasonModelUnavailable
	case errors.Is(err, ErrSchemaMismatch):
		return ReasonSchemaMismatch
	case errors.Is(err, ErrInvalidParameter):
		return ReasonInvalidParameter
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	default:
		return ReasonInternal
	}
}
