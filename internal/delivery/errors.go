package delivery

import (
	"errors"
	"strings"
)

// ErrProviderUnavailable is returned when no provider initialized successfully.
var ErrProviderUnavailable = errors.New("no email provider available")

// ValidationError reports a malformed request. It is returned before any
// side effect and is never logged as a delivery attempt.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

// DeliveryError reports that the provider's send call failed. A failed
// record has already been appended when it is returned.
type DeliveryError struct {
	Provider string
	Record   *Record
	Err      error
}

func (e *DeliveryError) Error() string {
	return "delivery via " + e.Provider + " failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Err }
