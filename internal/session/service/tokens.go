package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"github.com/afyapapo/sessioncore/internal/session/store"
	"github.com/afyapapo/sessioncore/pkg/slogx"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiresAt    = "expires_at"
)

const (
	DefaultExpiryBuffer     = 5 * time.Minute
	DefaultRefreshThreshold = 10 * time.Minute
	DefaultRefreshTokenTTL  = 30 * 24 * time.Hour
)

// ErrIncompleteCredentials is returned when a credential triple is missing
// its access token or expiry.
var ErrIncompleteCredentials = errors.New("session: incomplete credentials")

type TokenConfig struct {
	// ExpiryBuffer treats a token as expired this long before its real expiry.
	ExpiryBuffer time.Duration
	// RefreshThreshold is how close to expiry a refresh becomes due.
	RefreshThreshold time.Duration
	// RefreshTokenTTL bounds how long the refresh token is kept.
	RefreshTokenTTL time.Duration
}

func (c TokenConfig) withDefaults() TokenConfig {
	if c.ExpiryBuffer <= 0 {
		c.ExpiryBuffer = DefaultExpiryBuffer
	}
	if c.RefreshThreshold <= 0 {
		c.RefreshThreshold = DefaultRefreshThreshold
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	return c
}

// TokenService owns the persisted credential triple and answers freshness
// questions about it. Storage failures are logged and read as "no
// credentials".
type TokenService struct {
	Store  store.CredentialStore
	Logger *slog.Logger
	Now    func() time.Time

	cfg TokenConfig
}

func NewTokenService(s store.CredentialStore, logger *slog.Logger, cfg TokenConfig) *TokenService {
	return &TokenService{
		Store:  s,
		Logger: slogx.OrDiscard(logger),
		Now:    time.Now,
		cfg:    cfg.withDefaults(),
	}
}

func (t *TokenService) Config() TokenConfig { return t.cfg }

// SetCredentials replaces the stored triple in one atomic write. An empty
// refresh token removes the stored one. The access token and expiry live in
// the store for whole days, never less than the credential's own lifetime.
// A failed write leaves the previous credentials in place.
func (t *TokenService) SetCredentials(ctx context.Context, c domain.Credentials) error {
	if c.AccessToken == "" || c.ExpiresAt.IsZero() {
		return ErrIncompleteCredentials
	}

	now := t.Now()
	accessUntil := now.Add(time.Duration(storeDays(now, c.ExpiresAt)) * 24 * time.Hour)

	entries := []store.Entry{
		{Key: keyAccessToken, Value: c.AccessToken, ExpiresAt: accessUntil},
		{Key: keyExpiresAt, Value: c.ExpiresAt.UTC().Format(time.RFC3339Nano), ExpiresAt: accessUntil},
	}
	var remove []string
	if c.RefreshToken != "" {
		entries = append(entries, store.Entry{
			Key:       keyRefreshToken,
			Value:     c.RefreshToken,
			ExpiresAt: now.Add(t.cfg.RefreshTokenTTL),
		})
	} else {
		remove = append(remove, keyRefreshToken)
	}

	if err := t.Store.WriteAll(ctx, entries, remove...); err != nil {
		t.Logger.Error("failed to persist credentials", "error", err)
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

// storeDays rounds the remaining lifetime up to whole days, minimum one.
func storeDays(now, expiresAt time.Time) int {
	days := math.Ceil(expiresAt.Sub(now).Hours() / 24)
	if days < 1 {
		return 1
	}
	return int(days)
}

// AccessToken returns the stored access token unless it is expired, in
// which case every credential is evicted.
func (t *TokenService) AccessToken(ctx context.Context) (string, bool) {
	token, ok := t.read(ctx, keyAccessToken)
	if !ok {
		return "", false
	}
	if t.IsExpired(ctx) {
		t.Logger.Debug("evicting expired credentials")
		t.ClearAll(ctx)
		return "", false
	}
	return token, true
}

// RefreshToken is returned regardless of access-token expiry.
func (t *TokenService) RefreshToken(ctx context.Context) (string, bool) {
	return t.read(ctx, keyRefreshToken)
}

// ExpiresAt returns the stored absolute expiry. An unparsable value reads as
// absent.
func (t *TokenService) ExpiresAt(ctx context.Context) (time.Time, bool) {
	raw, ok := t.read(ctx, keyExpiresAt)
	if !ok {
		return time.Time{}, false
	}
	exp, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		t.Logger.Warn("unparsable credential expiry", "value", raw, "error", err)
		return time.Time{}, false
	}
	return exp, true
}

// Remaining is the time left until the stored expiry, without the buffer.
func (t *TokenService) Remaining(ctx context.Context) (time.Duration, bool) {
	exp, ok := t.ExpiresAt(ctx)
	if !ok {
		return 0, false
	}
	return exp.Sub(t.Now()), true
}

// IsExpired is true when no expiry is stored or the buffered expiry has
// passed.
func (t *TokenService) IsExpired(ctx context.Context) bool {
	exp, ok := t.ExpiresAt(ctx)
	if !ok {
		return true
	}
	return !t.Now().Before(exp.Add(-t.cfg.ExpiryBuffer))
}

// ShouldRefresh is true only while 0 < remaining < RefreshThreshold. Once
// the token has run out the session is ended instead.
func (t *TokenService) ShouldRefresh(ctx context.Context) bool {
	remaining, ok := t.Remaining(ctx)
	if !ok {
		return false
	}
	return remaining > 0 && remaining < t.cfg.RefreshThreshold
}

// HasCredentials reports whether a non-expired access token is stored,
// without evicting anything.
func (t *TokenService) HasCredentials(ctx context.Context) bool {
	if _, ok := t.read(ctx, keyAccessToken); !ok {
		return false
	}
	return !t.IsExpired(ctx)
}

// ClearAll removes every credential. It is safe to call repeatedly.
func (t *TokenService) ClearAll(ctx context.Context) {
	if err := t.Store.Remove(ctx, keyAccessToken, keyRefreshToken, keyExpiresAt); err != nil {
		t.Logger.Error("failed to clear credentials", "error", err)
	}
}

func (t *TokenService) read(ctx context.Context, key string) (string, bool) {
	v, err := t.Store.Read(ctx, key)
	switch {
	case err == nil:
		return v, v != ""
	case errors.Is(err, store.ErrNotFound):
		return "", false
	default:
		t.Logger.Error("failed to read credential", "key", key, "error", err)
		return "", false
	}
}
