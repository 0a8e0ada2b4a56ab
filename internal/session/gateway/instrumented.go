package gateway

import (
	"context"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/domain"
)

// Observer records the outcome of every gateway call.
type Observer interface {
	ObserveGateway(op string, elapsed time.Duration, err error)
}

type instrumented struct {
	next Gateway
	obs  Observer
}

// Instrument wraps next so every call is reported to obs.
func Instrument(next Gateway, obs Observer) Gateway {
	return &instrumented{next: next, obs: obs}
}

func (g *instrumented) Login(ctx context.Context, creds domain.LoginCredentials) (*LoginResult, error) {
	start := time.Now()
	res, err := g.next.Login(ctx, creds)
	g.obs.ObserveGateway("login", time.Since(start), err)
	return res, err
}

func (g *instrumented) Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	start := time.Now()
	creds, err := g.next.Refresh(ctx, refreshToken)
	g.obs.ObserveGateway("refresh", time.Since(start), err)
	return creds, err
}

func (g *instrumented) Logout(ctx context.Context) error {
	start := time.Now()
	err := g.next.Logout(ctx)
	g.obs.ObserveGateway("logout", time.Since(start), err)
	return err
}

func (g *instrumented) CurrentUser(ctx context.Context) (*domain.User, error) {
	start := time.Now()
	u, err := g.next.CurrentUser(ctx)
	g.obs.ObserveGateway("current_user", time.Since(start), err)
	return u, err
}
