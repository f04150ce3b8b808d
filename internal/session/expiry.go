package session

import (
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Access tokens are opaque to this service, but when the backend issues JWTs
// we can peek at exp to refresh proactively instead of waiting for a 401.
// The signature is NOT verified here; the token is never trusted locally.

// TokenExpiry returns the exp claim of a JWT access token.
// ok is false for non-JWT tokens or tokens without exp.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwtv5.MapClaims{}
	parser := jwtv5.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ExpiresWithin reports whether the current access token expires within d.
// False when unauthenticated or when the token carries no readable expiry.
func (m *Manager) ExpiresWithin(d time.Duration) bool {
	tok := m.AccessToken()
	if tok == "" {
		return false
	}
	exp, ok := TokenExpiry(tok)
	if !ok {
		return false
	}
	return time.Until(exp) <= d
}
