package candidates

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no candidate has the requested id.
var ErrNotFound = errors.New("candidate not found")

// ValidationError reports bad input. InvalidSlots is set when slot ids do not
// exist in availableSlots.
type ValidationError struct {
	Field        string
	Message      string
	InvalidSlots []int
}

func (e *ValidationError) Error() string {
	if len(e.InvalidSlots) > 0 {
		return fmt.Sprintf("Invalid slot IDs: %v", e.InvalidSlots)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid field: %s", e.Field)
}

func missingField(field string) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf("Missing required field: %s", field)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
