package domain

import (
	"errors"
	"fmt"
)

// Input errors. They are returned wrapped; match them with errors.Is.
var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidLimit     = errors.New("limit must be greater than zero")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrAmbiguousPeriod  = errors.New("month given without year")
	ErrBatchTooLarge    = errors.New("batch too large")
	ErrImmutableField   = errors.New("field is immutable")
	ErrMissingDate      = errors.New("receipt date is required")
	ErrMalformedRow     = errors.New("malformed receipt row")
	ErrUnmappedCategory = errors.New("category not recognized")
)

// Lookup and storage errors.
var (
	ErrNotFound         = errors.New("transaction not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrPersistFailed    = errors.New("persist failed")
	ErrCorruptRecord    = errors.New("corrupt record")
)

// ValidationError reports which entry of a request failed validation.
// Index is -1 for single-record operations.
type ValidationError struct {
	Index  int
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	prefix := ""
	if e.Index >= 0 {
		prefix = fmt.Sprintf("entry %d: ", e.Index)
	}
	if e.Value != "" {
		return fmt.Sprintf("%sfield %q (%q): %s", prefix, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%sfield %q: %s", prefix, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

// CorruptRecordError describes a durable row that could not be loaded.
type CorruptRecordError struct {
	Line   int
	Reason string
	Err    error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record at line %d: %s", e.Line, e.Reason)
}

func (e *CorruptRecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCorruptRecord}
	}
	return []error{ErrCorruptRecord, e.Err}
}
