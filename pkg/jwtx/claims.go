package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrNoExpiry  = errors.New("jwtx: token has no exp claim")
)

// Claims are the access-token claims the identity provider is known to emit.
// Only the registered claims are relied on; the rest is informational.
type Claims struct {
	jwt.RegisteredClaims

	// UserType is the role the token was issued for, e.g. "HOSPITAL_ADMIN".
	UserType string `json:"user_type,omitempty"`

	// Username for the authenticated user
	Username string `json:"username,omitempty"`
}

// ParseUnverified decodes the claims of token without checking its
// signature. The session core never trusts these claims for authorization;
// they are only used to recover metadata such as the expiry when the
// identity provider omits it from a response.
func ParseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	return claims, nil
}

// ExpiresAt returns the absolute expiry embedded in token's exp claim.
func ExpiresAt(token string) (time.Time, error) {
	claims, err := ParseUnverified(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
