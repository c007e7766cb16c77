// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrNoRecords is returned when an export finds nothing to write
var ErrNoRecords = errors.New("no email data found in database to export")

// ErrNotPending is returned when a record that already left pending is resolved again
var ErrNotPending = errors.New("send record is not pending")

// RecordNotFoundError is returned when a send record does not exist
type RecordNotFoundError struct {
	RecordID int64
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("send record with ID %d not found", e.RecordID)
}

// Helper constructor
func NewRecordNotFound(id int64) error {
	return &RecordNotFoundError{RecordID: id}
}

// ValidationError marks malformed client input. Nothing has been persisted when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err wraps a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err wraps a RecordNotFoundError
func IsNotFound(err error) bool {
	var nf *RecordNotFoundError
	return errors.As(err, &nf)
}
