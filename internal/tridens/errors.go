package tridens

import (
	"errors"
	"fmt"
)

// AuthError represents rejected credentials or a token that stayed
// rejected after the single re-authentication retry.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// MalformedTokenError is returned when the access token decodes but is
// missing an expected claim. Surfaced to callers as an auth failure.
type MalformedTokenError struct {
	Claim string
	Err   error
}

func (e *MalformedTokenError) Error() string {
	if e.Claim != "" {
		return fmt.Sprintf("malformed token: missing claim %q", e.Claim)
	}
	return fmt.Sprintf("malformed token: %v", e.Err)
}

func (e *MalformedTokenError) Unwrap() error {
	return e.Err
}

// TransportError wraps network-level failures (DNS, TLS, timeouts).
// A cycle that hits one is retried on the next scheduled run, never
// immediately.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error at %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError covers unexpected non-2xx statuses and responses whose
// shape does not match what the (undocumented) API is known to return.
type UpstreamError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream error (%d) at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("upstream error at %s: %s", e.Endpoint, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsAuthFailure reports whether err is user-visible as an integration
// auth failure. Malformed tokens count: the credentials worked but the
// resulting token is unusable.
func IsAuthFailure(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var tokenErr *MalformedTokenError
	return errors.As(err, &tokenErr)
}
