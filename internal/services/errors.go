package services

import (
	"errors"

	"subtrack/internal/storage"
)

// ErrNotFound is returned when the requested subscription does not exist.
var ErrNotFound = storage.ErrNotFound

const (
	msgMissingFields    = "missing required fields"
	msgInvalidCurrency  = "invalid currency"
	msgInvalidFrequency = "invalid frequency"
)

// ValidationError reports a rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
