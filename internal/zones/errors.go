package zones

import (
	"errors"
	"net/http"
)

var (
	// ErrNameRequired is returned before any request when a zone name is blank
	ErrNameRequired = errors.New("Zone name is required")
	// ErrNotFound is wrapped by APIError for unknown zone IDs
	ErrNotFound = errors.New("Zone not found")
)

// Fallback messages used when the server gives no error envelope
const (
	FallbackList   = "Failed to fetch zones"
	FallbackActive = "Failed to fetch active zones"
	FallbackCreate = "Failed to create zone"
	FallbackUpdate = "Failed to update zone"
	FallbackDelete = "Failed to delete zone"
	FallbackGet    = "Failed to fetch zone"
)

// APIError is the single error shape for zone operations. StatusCode is 0
// when the request never got a response.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error to a status for this service's own responses
func (e *APIError) HTTPStatus() int {
	if e.StatusCode == 0 {
		return http.StatusBadGateway
	}
	return e.StatusCode
}

// NotFound builds the error local stores return for an unknown ID
func NotFound() error {
	return &APIError{StatusCode: http.StatusNotFound, Message: ErrNotFound.Error(), Err: ErrNotFound}
}
