package tridens

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		"authentication error (403): invalid credentials",
		(&AuthError{StatusCode: 403, Message: "invalid credentials"}).Error())
	assert.Equal(t,
		`malformed token: missing claim "customer_code"`,
		(&MalformedTokenError{Claim: "customer_code"}).Error())
	assert.Equal(t,
		"upstream error (500) at /usage-events: boom",
		(&UpstreamError{StatusCode: 500, Endpoint: "/usage-events", Message: "boom"}).Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("cycle failed: %w", &TransportError{Endpoint: "/authenticate", Err: cause})

	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, cause)
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, IsAuthFailure(&AuthError{Message: "nope"}))
	assert.True(t, IsAuthFailure(&MalformedTokenError{Claim: "customer_code"}))
	assert.True(t, IsAuthFailure(fmt.Errorf("wrapped: %w", &AuthError{Message: "nope"})))
	assert.False(t, IsAuthFailure(&TransportError{Err: errors.New("timeout")}))
	assert.False(t, IsAuthFailure(&UpstreamError{StatusCode: 500}))
	assert.False(t, IsAuthFailure(nil))
}
