package glowmarkt

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated indicates a missing, invalid or expired token, or
	// rejected credentials.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrUnknownEntity indicates a device or resource id the API does not know.
	ErrUnknownEntity = errors.New("unknown entity")
)

// APIError reports a failed exchange with the remote API: either the
// transport failed outright or the response carried a non-success status.
type APIError struct {
	Status  int    // HTTP status code, 0 when the transport itself failed
	Message string // response body excerpt or transport error text
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api request failed: %s", e.Message)
	}
	return fmt.Sprintf("api returned unexpected response: %d %s", e.Status, e.Message)
}
