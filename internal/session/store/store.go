package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrEmptyKey = errors.New("store: empty key")
)

// Entry is a single keyed value with a store-level expiry. A zero ExpiresAt
// never expires.
type Entry struct {
	Key       string
	Value     string
	ExpiresAt time.Time
}

// CredentialStore is scoped key/value persistence for session credentials.
// Drivers (memory, sqlite) implement it; decorators (Namespaced, Sealed)
// wrap it.
type CredentialStore interface {
	// Read returns ErrNotFound for missing keys and for keys past their
	// store-level expiry.
	Read(ctx context.Context, key string) (string, error)

	// Write upserts a single entry.
	Write(ctx context.Context, key, value string, expiresAt time.Time) error

	// WriteAll upserts every entry and deletes every key in remove as one
	// step: either all of it happens or none of it does.
	WriteAll(ctx context.Context, entries []Entry, remove ...string) error

	// Remove deletes keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// Sweeper is implemented by drivers that can purge expired entries in bulk.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Unwrapper is implemented by decorators so callers can reach optional
// driver interfaces such as Sweeper.
type Unwrapper interface {
	Unwrap() CredentialStore
}

// AsSweeper walks the decorator chain looking for a Sweeper.
func AsSweeper(s CredentialStore) (Sweeper, bool) {
	for s != nil {
		if sw, ok := s.(Sweeper); ok {
			return sw, true
		}
		u, ok := s.(Unwrapper)
		if !ok {
			return nil, false
		}
		s = u.Unwrap()
	}
	return nil, false
}

// Validate rejects entries a driver must not write.
func Validate(entries ...Entry) error {
	for _, e := range entries {
		if e.Key == "" {
			return ErrEmptyKey
		}
	}
	return nil
}

// ValidateKeys rejects empty keys in a removal set.
func ValidateKeys(keys ...string) error {
	for _, k := range keys {
		if k == "" {
			return ErrEmptyKey
		}
	}
	return nil
}
