package backend

import "fmt"

// RejectedError is a business-rule rejection from the backend: an invalid
// or expired coupon, shipping unavailable, an order it refused. It is
// user-facing and must not be retried automatically, unlike transport
// errors, which this package reports as plain wrapped errors.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected by backend: %s", e.Message)
}

// reject builds a RejectedError, falling back to a generic message when the
// backend gave none.
func reject(message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return &RejectedError{Message: message}
}
