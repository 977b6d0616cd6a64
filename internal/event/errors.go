package event

import (
	"errors"
	"fmt"
)

// IntegrityError reports a variant record that cannot be grouped.
//
// Grouping fails the whole batch on the first such record rather than
// dropping it, since a silently lost record corrupts every count derived
// from the result.
type IntegrityError struct {
	// Code identifies the error category.
	Code IntegrityErrorCode

	// Message is a human-readable description.
	Message string

	// VariantID identifies the offending record.
	VariantID int64

	// Index is the record's position in the input batch.
	Index int
}

// IntegrityErrorCode categorizes integrity errors.
type IntegrityErrorCode string

const (
	// ErrCodeMissingEventID indicates a record without a grouping key.
	ErrCodeMissingEventID IntegrityErrorCode = "MISSING_EVENT_ID"

	// ErrCodeInvalidSpan indicates a record whose start is after its stop.
	ErrCodeInvalidSpan IntegrityErrorCode = "INVALID_SPAN"
)

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s (variant=%d, index=%d)", e.Code, e.Message, e.VariantID, e.Index)
}

// IsIntegrityError returns true if err is, or wraps, an IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

func newMissingEventIDError(variantID int64, index int) *IntegrityError {
	return &IntegrityError{
		Code:      ErrCodeMissingEventID,
		Message:   "variant record has no event id",
		VariantID: variantID,
		Index:     index,
	}
}

func newInvalidSpanError(variantID int64, index int, start, stop int64) *IntegrityError {
	return &IntegrityError{
		Code:      ErrCodeInvalidSpan,
		Message:   fmt.Sprintf("start %d is after stop %d", start, stop),
		VariantID: variantID,
		Index:     index,
	}
}
