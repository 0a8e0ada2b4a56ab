package memory

import (
	"context"
	"sync"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/store"
)

type item struct {
	value     string
	expiresAt time.Time
}

// Store is a process-local CredentialStore. It is the default when no durable
// store is configured and the store of choice in tests.
type Store struct {
	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time

	mu    sync.Mutex
	items map[string]item
}

var (
	_ store.CredentialStore = (*Store)(nil)
	_ store.Sweeper         = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{Now: time.Now, items: make(map[string]item)}
}

func (s *Store) expired(it item) bool {
	return !it.expiresAt.IsZero() && !s.Now().Before(it.expiresAt)
}

func (s *Store) Read(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[key]
	if !ok {
		return "", store.ErrNotFound
	}
	if s.expired(it) {
		delete(s.items, key)
		return "", store.ErrNotFound
	}
	return it.value, nil
}

func (s *Store) Write(_ context.Context, key, value string, expiresAt time.Time) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = item{value: value, expiresAt: expiresAt}
	return nil
}

func (s *Store) WriteAll(_ context.Context, entries []store.Entry, remove ...string) error {
	if err := store.Validate(entries...); err != nil {
		return err
	}
	if err := store.ValidateKeys(remove...); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range remove {
		delete(s.items, k)
	}
	for _, e := range entries {
		s.items[e.Key] = item{value: e.Value, expiresAt: e.ExpiresAt}
	}
	return nil
}

func (s *Store) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}

func (s *Store) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, it := range s.items {
		if s.expired(it) {
			delete(s.items, k)
			n++
		}
	}
	return n, nil
}

// Len reports how many entries are held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }
