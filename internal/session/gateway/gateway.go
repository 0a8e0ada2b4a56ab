// Package gateway adapts the external identity provider. The session core
// only sees the Gateway interface; Client is the GraphQL-over-HTTP
// implementation used in production.
package gateway

import (
	"context"

	"github.com/afyapapo/sessioncore/internal/session/domain"
)

// LoginResult is a successful login. Failures are reported as errors.
type LoginResult struct {
	User        *domain.User
	Credentials domain.Credentials
}

// Gateway is the identity provider contract.
type Gateway interface {
	// Login exchanges user credentials for a session. A rejection by the
	// provider is returned as *Error; anything else is a transport failure.
	Login(ctx context.Context, creds domain.LoginCredentials) (*LoginResult, error)

	// Refresh exchanges a refresh token for new credentials. The returned
	// RefreshToken may be empty when the provider does not rotate it.
	Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error)

	// Logout notifies the provider. Callers treat it as best-effort.
	Logout(ctx context.Context) error

	// CurrentUser returns the user bound to the access token, or nil when the
	// provider has no user for it.
	CurrentUser(ctx context.Context) (*domain.User, error)
}

type accessTokenKey struct{}

// WithAccessToken attaches the bearer token to use for calls made with ctx.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFromContext returns the token set by WithAccessToken.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok && token != ""
}

// TokenSource supplies a bearer token when none is attached to the context.
type TokenSource func(ctx context.Context) (string, bool)
