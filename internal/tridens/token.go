package tridens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const customerCodeClaim = "customer_code"

// SessionToken holds the bearer token issued by the authenticate
// endpoint together with the claims we read out of it. It lives in
// memory only and is replaced wholesale on re-authentication.
type SessionToken struct {
	Raw          string
	CustomerCode string
	ExpiresAt    time.Time // zero when the token carries no exp claim
}

// ParseSessionToken decodes the token payload and extracts the
// customer code claim. The signature is deliberately not verified: the
// token came to us over TLS from the host that signed it, and we only
// need to read our own customer identifier back out of it.
func ParseSessionToken(raw string) (*SessionToken, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, &MalformedTokenError{Err: err}
	}

	code, ok := claims[customerCodeClaim].(string)
	if !ok || code == "" {
		return nil, &MalformedTokenError{Claim: customerCodeClaim}
	}

	token := &SessionToken{
		Raw:          raw,
		CustomerCode: code,
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		token.ExpiresAt = exp.Time
	}
	return token, nil
}

// Valid reports whether the token exists and has not passed its expiry
// claim. Tokens without an exp claim are assumed live until the API
// says otherwise with a 401.
func (t *SessionToken) Valid(now time.Time) bool {
	if t == nil || t.Raw == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(t.ExpiresAt)
}
