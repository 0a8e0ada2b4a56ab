package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"github.com/afyapapo/sessioncore/internal/session/gateway"
	"github.com/afyapapo/sessioncore/internal/session/store/drivers/memory"
	"github.com/afyapapo/sessioncore/pkg/slogx"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeGateway lets each test script the identity provider.
type fakeGateway struct {
	mu sync.Mutex

	loginFn   func(ctx context.Context, creds domain.LoginCredentials) (*gateway.LoginResult, error)
	refreshFn func(ctx context.Context, refreshToken string) (*domain.Credentials, error)
	logoutFn  func(ctx context.Context) error
	userFn    func(ctx context.Context) (*domain.User, error)

	loginCalls   int
	refreshCalls int
	logoutTokens []string
}

func (f *fakeGateway) Login(ctx context.Context, creds domain.LoginCredentials) (*gateway.LoginResult, error) {
	f.mu.Lock()
	f.loginCalls++
	fn := f.loginFn
	f.mu.Unlock()
	if fn == nil {
		return nil, &gateway.Error{Op: "login"}
	}
	return fn(ctx, creds)
}

func (f *fakeGateway) Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()
	if fn == nil {
		return nil, &gateway.Error{Op: "refresh"}
	}
	return fn(ctx, refreshToken)
}

func (f *fakeGateway) Logout(ctx context.Context) error {
	token, _ := gateway.AccessTokenFromContext(ctx)
	f.mu.Lock()
	f.logoutTokens = append(f.logoutTokens, token)
	fn := f.logoutFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (f *fakeGateway) CurrentUser(ctx context.Context) (*domain.User, error) {
	f.mu.Lock()
	fn := f.userFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func (f *fakeGateway) counts() (login, refresh, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshCalls, len(f.logoutTokens)
}

type harness struct {
	clock   *clock
	store   *memory.Store
	tokens  *TokenService
	gw      *fakeGateway
	session *SessionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := newClock()
	st := memory.NewStore()
	st.Now = clk.Now

	tokens := NewTokenService(st, slogx.Discard(), TokenConfig{})
	tokens.Now = clk.Now

	gw := &fakeGateway{}
	svc := NewSessionService(gw, tokens, NewAuthorizeService(DefaultPolicy()), slogx.Discard(), nil, SessionConfig{
		RefreshInterval: time.Hour,
	})
	t.Cleanup(svc.Close)

	return &harness{clock: clk, store: st, tokens: tokens, gw: gw, session: svc}
}

func (h *harness) creds(access, refresh string, ttl time.Duration) domain.Credentials {
	return domain.Credentials{AccessToken: access, RefreshToken: refresh, ExpiresAt: h.clock.Now().Add(ttl)}
}

// loginAs scripts a successful login and runs it.
func (h *harness) loginAs(t *testing.T, u *domain.User, c domain.Credentials) {
	t.Helper()
	h.gw.loginFn = func(context.Context, domain.LoginCredentials) (*gateway.LoginResult, error) {
		return &gateway.LoginResult{User: u, Credentials: c}, nil
	}
	if err := h.session.Login(context.Background(), domain.LoginCredentials{Username: u.Username, Password: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func hospitalAdmin(perms *domain.AdminPermissions) *domain.User {
	return &domain.User{
		ID:       "u-admin",
		Username: "amina",
		UserType: domain.RoleHospitalAdmin,
		IsActive: true,
		HospitalAdminProfile: &domain.HospitalAdminProfile{
			ID:               "hap-1",
			PrimaryFacility:  &domain.Facility{ID: "fac-1", Name: "Kenyatta National"},
			Permissions:      perms,
			DepartmentAccess: []string{"dept-er", "dept-icu"},
		},
	}
}

func responder() *domain.User {
	return &domain.User{
		ID:       "u-resp",
		Username: "otieno",
		UserType: domain.RoleResponder,
		IsActive: true,
		EmergencyResponderProfile: &domain.EmergencyResponderProfile{
			ID:               "erp-1",
			ResponderType:    "PARAMEDIC",
			IsOnDuty:         true,
			AssignedFacility: &domain.Facility{ID: "fac-2", Name: "Station 2"},
		},
	}
}

func userOf(role domain.Role) *domain.User {
	return &domain.User{ID: "u-" + string(role), Username: string(role), UserType: role, IsActive: true}
}
