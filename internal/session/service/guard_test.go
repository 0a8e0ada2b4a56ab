package service

import (
	"context"
	"testing"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"github.com/stretchr/testify/require"
)

func authenticated(a *AuthorizeService, u *domain.User) domain.AuthState {
	perms := a.DerivePermissions(u)
	return domain.AuthState{
		Phase:           domain.PhaseAuthenticated,
		User:            u,
		IsAuthenticated: true,
		Permissions:     &perms,
	}
}

func TestGuardEvaluate(t *testing.T) {
	t.Parallel()

	a := NewAuthorizeService(DefaultPolicy())
	g := NewGuard(a, nil)

	t.Run("pending before the first check", func(t *testing.T) {
		require.Equal(t, DecisionPending, g.Evaluate(domain.InitialState(), Requirement{}))
	})

	t.Run("pending while loading", func(t *testing.T) {
		st := domain.AuthState{Phase: domain.PhaseLoading, IsLoading: true}
		require.Equal(t, DecisionPending, g.Evaluate(st, Requirement{Role: domain.RoleSystemAdmin}))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		st := domain.AuthState{Phase: domain.PhaseUnauthenticated}
		require.Equal(t, DecisionRedirectUnauthenticated, g.Evaluate(st, Requirement{}))

		st = domain.AuthState{Phase: domain.PhaseError, Error: "Login failed"}
		require.Equal(t, DecisionRedirectUnauthenticated, g.Evaluate(st, Requirement{}))
	})

	t.Run("no requirement allows any signed-in user", func(t *testing.T) {
		require.Equal(t, DecisionAllow, g.Evaluate(authenticated(a, userOf(domain.RoleCitizen)), Requirement{}))
	})

	t.Run("role failure is unauthorized, not unauthenticated", func(t *testing.T) {
		st := authenticated(a, userOf(domain.RoleResponder))
		require.Equal(t, DecisionRedirectUnauthorized, g.Evaluate(st, Requirement{Role: domain.RoleDispatcher}))
	})

	t.Run("role and permission are both required", func(t *testing.T) {
		r := responder()
		r.HospitalAdminProfile = &domain.HospitalAdminProfile{
			Permissions: &domain.AdminPermissions{CanGenerateReports: true},
		}
		st := authenticated(a, r)

		req := Requirement{Role: domain.RoleDispatcher, Permission: domain.PermGenerateReports}
		require.Equal(t, DecisionRedirectUnauthorized, g.Evaluate(st, req))
		require.Equal(t, DecisionAllow, g.Evaluate(st, Requirement{Permission: domain.PermGenerateReports}))
	})

	t.Run("explicit denial beats role table", func(t *testing.T) {
		st := authenticated(a, hospitalAdmin(&domain.AdminPermissions{CanManageBeds: false}))
		require.Equal(t, DecisionRedirectUnauthorized, g.Evaluate(st, Requirement{Permission: domain.PermManageBeds}))
	})

	t.Run("any-of and all-of permission lists", func(t *testing.T) {
		st := authenticated(a, hospitalAdmin(&domain.AdminPermissions{CanManageStaff: true}))
		perms := []domain.Permission{domain.PermManageBeds, domain.PermManageStaff}

		require.Equal(t, DecisionAllow, g.Evaluate(st, Requirement{Permissions: perms}))
		require.Equal(t, DecisionRedirectUnauthorized, g.Evaluate(st, Requirement{Permissions: perms, RequireAll: true}))
	})

	t.Run("missing cached permissions are derived", func(t *testing.T) {
		st := authenticated(a, userOf(domain.RoleDispatcher))
		st.Permissions = nil
		require.Equal(t, DecisionAllow, g.Evaluate(st, Requirement{Permission: domain.PermManageAmbulances}))
	})
}

func TestGuardWatchFollowsSession(t *testing.T) {
	h := newHarness(t)
	g := NewGuard(h.session.Authorizer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	decisions := g.Watch(ctx, h.session, Requirement{Permission: domain.PermGenerateReports})

	// Intermediate decisions may be coalesced; the final one always arrives.
	waitFor := func(want Decision) {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case d, ok := <-decisions:
				require.True(t, ok, "decision stream closed early")
				if d == want {
					return
				}
			case <-timeout:
				t.Fatalf("never saw %s", want)
			}
		}
	}

	waitFor(DecisionPending)

	h.loginAs(t, userOf(domain.RoleResponder), h.creds("a1", "r1", time.Hour))
	waitFor(DecisionRedirectUnauthorized)

	h.session.Logout(context.Background())
	waitFor(DecisionRedirectUnauthenticated)

	h.loginAs(t, userOf(domain.RoleDispatcher), h.creds("a2", "r2", time.Hour))
	waitFor(DecisionAllow)

	cancel()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-decisions:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("decision stream not closed after cancel")
		}
	}
}
