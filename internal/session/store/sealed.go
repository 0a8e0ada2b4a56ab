package store

import (
	"context"
	"fmt"
	"time"
)

// Sealer encrypts values at rest. *cryptox.Sealer satisfies it.
type Sealer interface {
	SealString(plain string) (string, error)
	OpenString(sealed string) (string, error)
}

type sealed struct {
	inner  CredentialStore
	sealer Sealer
}

// Sealed encrypts every value before it reaches inner. Keys stay in the
// clear so they can still be looked up and removed.
func Sealed(inner CredentialStore, sealer Sealer) CredentialStore {
	return &sealed{inner: inner, sealer: sealer}
}

func (s *sealed) Read(ctx context.Context, key string) (string, error) {
	v, err := s.inner.Read(ctx, key)
	if err != nil {
		return "", err
	}
	plain, err := s.sealer.OpenString(v)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", key, err)
	}
	return plain, nil
}

func (s *sealed) Write(ctx context.Context, key, value string, expiresAt time.Time) error {
	v, err := s.sealer.SealString(value)
	if err != nil {
		return fmt.Errorf("seal %q: %w", key, err)
	}
	return s.inner.Write(ctx, key, v, expiresAt)
}

func (s *sealed) WriteAll(ctx context.Context, entries []Entry, remove ...string) error {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		v, err := s.sealer.SealString(e.Value)
		if err != nil {
			return fmt.Errorf("seal %q: %w", e.Key, err)
		}
		e.Value = v
		out[i] = e
	}
	return s.inner.WriteAll(ctx, out, remove...)
}

func (s *sealed) Remove(ctx context.Context, keys ...string) error {
	return s.inner.Remove(ctx, keys...)
}

func (s *sealed) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }
func (s *sealed) Close() error                   { return s.inner.Close() }
func (s *sealed) Unwrap() CredentialStore        { return s.inner }
