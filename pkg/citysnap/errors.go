package citysnap

import (
	"fmt"

	"github.com/citysnap/gateway/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation = domain.ErrValidation
	ErrNotFound   = domain.ErrNotFound
	ErrUpstream   = domain.ErrUpstream
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("citysnap: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the HTTP status onto a sentinel error.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 404:
		return ErrNotFound
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrValidation
	case e.StatusCode >= 500:
		return ErrUpstream
	}
	return nil
}
