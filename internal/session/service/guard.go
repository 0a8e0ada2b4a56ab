package service

import (
	"context"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"github.com/afyapapo/sessioncore/internal/session/obs"
)

// Decision is the outcome of a guard evaluation.
type Decision string

const (
	DecisionAllow                   Decision = "allow"
	DecisionPending                 Decision = "pending"
	DecisionRedirectUnauthenticated Decision = "redirect-unauthenticated"
	DecisionRedirectUnauthorized    Decision = "redirect-unauthorized"
)

func (d Decision) String() string { return string(d) }

// Requirement describes what a protected operation needs. Zero fields are
// not checked. Permissions is matched as any-of unless RequireAll is set.
type Requirement struct {
	Role        domain.Role
	Permission  domain.Permission
	Permissions []domain.Permission
	RequireAll  bool
}

// StateSource is the read side of the session state machine.
type StateSource interface {
	State() domain.AuthState
	Subscribe() (<-chan domain.AuthState, func())
}

// Guard gates protected operations on the current session.
type Guard struct {
	Authorizer *AuthorizeService
	Metrics    *obs.Metrics
}

func NewGuard(a *AuthorizeService, m *obs.Metrics) *Guard {
	return &Guard{Authorizer: a, Metrics: m}
}

// Evaluate decides a requirement against one state snapshot.
func (g *Guard) Evaluate(st domain.AuthState, req Requirement) Decision {
	d := g.evaluate(st, req)
	g.Metrics.ObserveGuard(string(d))
	return d
}

func (g *Guard) evaluate(st domain.AuthState, req Requirement) Decision {
	if st.IsLoading {
		return DecisionPending
	}
	if !st.IsAuthenticated || st.User == nil {
		return DecisionRedirectUnauthenticated
	}

	var perms domain.PermissionSet
	if st.Permissions != nil {
		perms = *st.Permissions
	} else {
		perms = g.Authorizer.DerivePermissions(st.User)
	}

	if !g.Authorizer.Allows(st.User, perms, req) {
		return DecisionRedirectUnauthorized
	}
	return DecisionAllow
}

// Check evaluates against the source's current state.
func (g *Guard) Check(src StateSource, req Requirement) Decision {
	return g.Evaluate(src.State(), req)
}

// Watch re-evaluates req on every state change and emits each decision,
// starting with the current one. The channel closes when ctx is done or the
// source stops publishing.
func (g *Guard) Watch(ctx context.Context, src StateSource, req Requirement) <-chan Decision {
	states, unsubscribe := src.Subscribe()
	out := make(chan Decision, 1)

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-states:
				if !ok {
					return
				}
				select {
				case out <- g.Evaluate(st, req):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
