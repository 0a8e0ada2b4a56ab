package store

import (
	"context"
	"time"
)

// DefaultNamespace keeps session keys clear of unrelated data in a shared store.
const DefaultNamespace = "afyapapo_"

type namespaced struct {
	inner  CredentialStore
	prefix string
}

// Namespaced prefixes every key with prefix before it reaches inner.
func Namespaced(inner CredentialStore, prefix string) CredentialStore {
	return &namespaced{inner: inner, prefix: prefix}
}

func (n *namespaced) key(k string) string { return n.prefix + k }

func (n *namespaced) Read(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	return n.inner.Read(ctx, n.key(key))
}

func (n *namespaced) Write(ctx context.Context, key, value string, expiresAt time.Time) error {
	if key == "" {
		return ErrEmptyKey
	}
	return n.inner.Write(ctx, n.key(key), value, expiresAt)
}

func (n *namespaced) WriteAll(ctx context.Context, entries []Entry, remove ...string) error {
	if err := Validate(entries...); err != nil {
		return err
	}
	if err := ValidateKeys(remove...); err != nil {
		return err
	}
	prefixed := make([]Entry, len(entries))
	for i, e := range entries {
		e.Key = n.key(e.Key)
		prefixed[i] = e
	}
	return n.inner.WriteAll(ctx, prefixed, n.keys(remove)...)
}

func (n *namespaced) keys(keys []string) []string {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = n.key(k)
	}
	return prefixed
}

func (n *namespaced) Remove(ctx context.Context, keys ...string) error {
	return n.inner.Remove(ctx, n.keys(keys)...)
}

func (n *namespaced) Ping(ctx context.Context) error { return n.inner.Ping(ctx) }
func (n *namespaced) Close() error                   { return n.inner.Close() }
func (n *namespaced) Unwrap() CredentialStore        { return n.inner }
