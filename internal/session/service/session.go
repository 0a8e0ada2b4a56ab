package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"github.com/afyapapo/sessioncore/internal/session/gateway"
	"github.com/afyapapo/sessioncore/internal/session/obs"
	"github.com/afyapapo/sessioncore/pkg/idx"
	"github.com/afyapapo/sessioncore/pkg/slogx"
	"github.com/google/uuid"
)

var (
	// ErrSuperseded is returned when a logout (or a newer login) won the
	// race and this operation's result was discarded.
	ErrSuperseded = errors.New("session: superseded by a newer operation")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session: closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session: already started")
)

const (
	msgLoginFailed  = "Login failed"
	msgNetworkError = "Network error occurred during login"
)

// LoginError is a failed login. Message is suitable for display and is
// the same text placed on AuthState.Error.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

// loginMessage maps a gateway failure to the message shown to the user.
func loginMessage(err error) string {
	var gerr *gateway.Error
	switch {
	case errors.As(err, &gerr):
		if msg := gerr.Message(); msg != "" {
			return msg
		}
		return msgLoginFailed
	case errors.Is(err, gateway.ErrTransport),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return msgNetworkError
	default:
		return msgLoginFailed
	}
}

// SessionConfig tunes a SessionService.
type SessionConfig struct {
	// RefreshInterval is the scheduler period. Defaults to one minute.
	RefreshInterval time.Duration
}

// SessionService is the single owner of AuthState. Every mutation goes
// through apply under mu, and every asynchronous result is checked against
// the epoch captured when the operation began; logout and successful logins
// advance the epoch so stale results are dropped.
type SessionService struct {
	Gateway    gateway.Gateway
	Tokens     *TokenService
	Authorizer *AuthorizeService
	Logger     *slog.Logger
	Metrics    *obs.Metrics

	cfg SessionConfig

	mu        sync.Mutex
	state     domain.AuthState
	epoch     uint64
	started   bool
	closed    bool
	subs      map[uuid.UUID]chan domain.AuthState
	onEnd     []func(context.Context)
	scheduler *RefreshService

	loginMu   sync.Mutex
	refreshMu sync.Mutex
}

func NewSessionService(
	gw gateway.Gateway,
	tokens *TokenService,
	authorizer *AuthorizeService,
	logger *slog.Logger,
	metrics *obs.Metrics,
	cfg SessionConfig,
) *SessionService {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	return &SessionService{
		Gateway:    gw,
		Tokens:     tokens,
		Authorizer: authorizer,
		Logger:     slogx.OrDiscard(logger),
		Metrics:    metrics,
		cfg:        cfg,
		state:      domain.InitialState(),
		subs:       make(map[uuid.UUID]chan domain.AuthState),
	}
}

// State returns a copy of the current snapshot.
func (s *SessionService) State() domain.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe returns a channel that receives the current state immediately
// and then every subsequent state. Slow readers only ever see the latest
// value. The channel is closed by the returned func or by Close.
func (s *SessionService) Subscribe() (<-chan domain.AuthState, func()) {
	ch := make(chan domain.AuthState, 1)
	id := uuid.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[id] = ch
	ch <- s.state.Clone()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// OnSessionEnd registers fn to run after every session end (logout, failed
// refresh, expiry) so callers can drop cached session-derived data.
func (s *SessionService) OnSessionEnd(fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = append(s.onEnd, fn)
}

// beginOp tags ctx and a logger with a fresh operation id.
func (s *SessionService) beginOp(ctx context.Context, op string) (context.Context, *slog.Logger) {
	id := idx.New().String()
	logger := s.Logger.With("op", op, "op_id", id)
	return slogx.WithContext(ctx, logger), logger
}

// Start runs the startup check and launches the refresh scheduler.
func (s *SessionService) Start(ctx context.Context) error {
	ctx, log := s.beginOp(ctx, "start")

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.apply(log, event{kind: evAuthStart})
	s.mu.Unlock()

	s.startupCheck(ctx, log)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.scheduler = NewRefreshService(s, s.Logger, s.cfg.RefreshInterval)
	s.scheduler.Start()
	return nil
}

func (s *SessionService) startupCheck(ctx context.Context, log *slog.Logger) {
	if s.Tokens.ShouldRefresh(ctx) {
		log.Debug("credentials inside refresh window at startup")
		if _, err := s.refresh(ctx, log); err != nil {
			return
		}
	}

	s.mu.Lock()
	epoch := s.epoch
	if s.state.Phase != domain.PhaseLoading {
		// A refresh failure or a concurrent login already settled the state.
		s.mu.Unlock()
		return
	}
	token, ok := s.Tokens.AccessToken(ctx)
	if !ok {
		s.apply(log, event{kind: evSessionEnd})
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	user, err := s.Gateway.CurrentUser(gateway.WithAccessToken(ctx, token))

	s.mu.Lock()
	if s.closed || s.epoch != epoch {
		s.mu.Unlock()
		log.Debug("discarding stale startup result")
		return
	}
	switch {
	case err != nil:
		log.Warn("failed to fetch current user", "error", err)
		s.apply(log, event{kind: evSessionEnd})
	case user == nil:
		log.Info("stored credentials no longer map to a user")
		s.Tokens.ClearAll(ctx)
		s.apply(log, event{kind: evSessionEnd})
	default:
		s.epoch++
		s.apply(log, event{kind: evAuthSuccess, user: user})
	}
	s.mu.Unlock()
}

// Login authenticates and persists the returned credentials. Logins are
// serialized. A failure while already authenticated leaves the existing
// session in place and only returns the error.
func (s *SessionService) Login(ctx context.Context, creds domain.LoginCredentials) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	ctx, log := s.beginOp(ctx, "login")

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	wasAuthenticated := s.state.IsAuthenticated
	if !wasAuthenticated {
		s.apply(log, event{kind: evAuthStart})
	}
	epoch := s.epoch
	s.mu.Unlock()

	res, err := s.Gateway.Login(ctx, creds)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.epoch != epoch {
		log.Info("discarding login result superseded by logout")
		return ErrSuperseded
	}

	if err == nil && (res == nil || res.User == nil) {
		err = gateway.ErrMissingTokens
	}
	if err == nil {
		err = s.Tokens.SetCredentials(ctx, res.Credentials)
	}
	if err != nil {
		lerr := &LoginError{Message: loginMessage(err), Err: err}
		log.Info("login failed", "error", err)
		if wasAuthenticated && s.state.IsAuthenticated {
			return lerr
		}
		s.apply(log, event{kind: evAuthFailure, err: lerr.Message})
		return lerr
	}

	s.epoch++
	s.apply(log, event{kind: evAuthSuccess, user: res.User})
	log.Info("login succeeded", "user_id", res.User.ID, "user_type", res.User.UserType)
	return nil
}

// Logout ends the session locally first, then tells the identity provider.
// It never fails; provider errors are logged.
func (s *SessionService) Logout(ctx context.Context) {
	ctx, log := s.beginOp(ctx, "logout")

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.Tokens.ClearAll(ctx)
		return
	}
	token, hadToken := s.Tokens.AccessToken(ctx)
	hooks := s.endSessionLocked(ctx, log)
	s.mu.Unlock()

	s.runHooks(ctx, hooks)

	if !hadToken {
		return
	}
	if err := s.Gateway.Logout(gateway.WithAccessToken(ctx, token)); err != nil {
		log.Warn("identity provider logout failed", "error", err)
	}
}

// RefreshToken exchanges the stored refresh token for new credentials. It
// reports false when there was nothing to refresh or the refresh failed, in
// which case the session has ended.
func (s *SessionService) RefreshToken(ctx context.Context) (bool, error) {
	ctx, log := s.beginOp(ctx, "refresh")
	return s.refresh(ctx, log)
}

func (s *SessionService) refresh(ctx context.Context, log *slog.Logger) (bool, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	refreshToken, ok := s.Tokens.RefreshToken(ctx)
	if !ok {
		log.Info("no refresh token stored; ending session")
		hooks := s.endSessionLocked(ctx, log)
		s.mu.Unlock()
		s.runHooks(ctx, hooks)
		s.Metrics.ObserveRefresh("skipped")
		return false, nil
	}
	s.apply(log, event{kind: evRefreshStart})
	epoch := s.epoch
	s.mu.Unlock()

	creds, err := s.Gateway.Refresh(ctx, refreshToken)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if s.epoch != epoch {
		s.mu.Unlock()
		log.Info("discarding refresh result superseded by a newer session")
		s.Metrics.ObserveRefresh("superseded")
		return false, ErrSuperseded
	}

	if err == nil {
		if creds.RefreshToken == "" {
			creds.RefreshToken = refreshToken
		}
		err = s.Tokens.SetCredentials(ctx, *creds)
	}
	if err != nil {
		log.Info("refresh failed; ending session", "error", err)
		hooks := s.endSessionLocked(ctx, log)
		s.mu.Unlock()
		s.runHooks(ctx, hooks)
		s.Metrics.ObserveRefresh("failure")
		return false, nil
	}

	s.apply(log, event{kind: evRefreshDone})
	s.mu.Unlock()
	s.Metrics.ObserveRefresh("success")
	log.Debug("tokens refreshed", "expires_at", creds.ExpiresAt)
	return true, nil
}

// ClearError drops a login error, leaving the session unauthenticated.
func (s *SessionService) ClearError() {
	_, log := s.beginOp(context.Background(), "clear_error")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.apply(log, event{kind: evClearError})
}

// Tick is one scheduler step: refresh when due, end the session when the
// token has run out.
func (s *SessionService) Tick(ctx context.Context) {
	if !s.State().IsAuthenticated {
		return
	}

	switch {
	case s.Tokens.ShouldRefresh(ctx):
		ctx, log := s.beginOp(ctx, "scheduled_refresh")
		if _, err := s.refresh(ctx, log); err != nil && !errors.Is(err, ErrSuperseded) {
			log.Debug("scheduled refresh aborted", "error", err)
		}
	case s.Tokens.IsExpired(ctx):
		ctx, log := s.beginOp(ctx, "expire")
		s.mu.Lock()
		if s.closed || !s.state.IsAuthenticated {
			s.mu.Unlock()
			return
		}
		log.Info("credentials expired; ending session")
		hooks := s.endSessionLocked(ctx, log)
		s.mu.Unlock()
		s.runHooks(ctx, hooks)
	}
}

// Close stops the scheduler, closes every subscription and fails any
// operation still in flight with ErrClosed. Stored credentials are kept so
// the next instance can resume the session.
func (s *SessionService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	scheduler := s.scheduler
	s.mu.Unlock()

	if scheduler != nil {
		scheduler.Stop()
	}
}

// endSessionLocked clears credentials, advances the epoch and resets the
// state. It returns the hooks to run once mu is released.
func (s *SessionService) endSessionLocked(ctx context.Context, log *slog.Logger) []func(context.Context) {
	s.epoch++
	s.Tokens.ClearAll(ctx)
	s.apply(log, event{kind: evSessionEnd})
	return append([]func(context.Context){}, s.onEnd...)
}

func (s *SessionService) runHooks(ctx context.Context, hooks []func(context.Context)) {
	for _, fn := range hooks {
		fn(ctx)
	}
}

// apply runs the transition function and publishes the result. Callers
// hold mu.
func (s *SessionService) apply(log *slog.Logger, ev event) {
	next, changed := reduce(s.state, ev, s.Authorizer)
	if !changed {
		return
	}
	from := s.state.Phase
	next.Version = s.state.Version + 1
	s.state = next

	log.Debug("session transition", "event", ev.kind.String(), "from", from.String(), "to", next.Phase.String())
	s.Metrics.ObserveTransition(next.Phase.String())

	for _, ch := range s.subs {
		publish(ch, next.Clone())
	}
}

// publish replaces whatever the reader has not consumed yet.
func publish(ch chan domain.AuthState, st domain.AuthState) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}
