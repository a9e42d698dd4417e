package domain

import (
	"errors"
	"fmt"
)

// The gateway exposes exactly three failure kinds. Every error returned by the
// building orchestrator wraps one of them.
var (
	// ErrValidation signals a structurally unusable query (no address or
	// coordinates, undecodable image).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals that a required identity lookup found no match.
	ErrNotFound = errors.New("not found")
	// ErrUpstream signals a transport or provider failure of a required collaborator.
	ErrUpstream = errors.New("upstream failure")
)

// Validationf creates an ErrValidation error with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf creates an ErrNotFound error with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// UpstreamError describes a failed call to an external provider.
// It unwraps to ErrUpstream only; the cause is kept for logs and messages.
type UpstreamError struct {
	Provider   string
	Op         string
	StatusCode int // 0 when no HTTP response was received
	Cause      error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s: %s %s", ErrUpstream.Error(), e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// NewUpstreamError creates an upstream error for provider/op.
func NewUpstreamError(provider, op string, statusCode int, cause error) error {
	return &UpstreamError{Provider: provider, Op: op, StatusCode: statusCode, Cause: cause}
}

// Kind reports which of the three failure kinds err belongs to, or nil when
// err is not a domain error.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrUpstream} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
