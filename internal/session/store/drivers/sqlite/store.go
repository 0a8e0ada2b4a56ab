package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/store"
	_ "modernc.org/sqlite"
)

// Store is a durable CredentialStore backed by a single sqlite table.
type Store struct {
	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time

	db  *sql.DB
	q   *queries
	dsn string
}

var (
	_ store.CredentialStore = (*Store)(nil)
	_ store.Sweeper         = (*Store)(nil)
)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Every connection to :memory: is its own database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		Now: time.Now,
		db:  db,
		q:   &queries{db: db},
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) withTx(ctx context.Context, fn func(q *queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Safe to call even after commit.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Read(ctx context.Context, key string) (string, error) {
	value, expiresAt, err := s.q.getCredential(ctx, key)
	if err != nil {
		return "", mapNotFound(err)
	}

	now := s.Now()
	if expiresAt > 0 && now.UnixMilli() >= expiresAt {
		// Lazily evict; a failed delete is left to DeleteExpired.
		_ = s.q.deleteCredential(ctx, key)
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) Write(ctx context.Context, key, value string, expiresAt time.Time) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	return s.q.upsertCredential(ctx, key, value, toMillis(expiresAt), s.Now().UnixMilli())
}

// WriteAll applies the removals and upserts in one transaction.
func (s *Store) WriteAll(ctx context.Context, entries []store.Entry, remove ...string) error {
	if err := store.Validate(entries...); err != nil {
		return err
	}
	if err := store.ValidateKeys(remove...); err != nil {
		return err
	}

	now := s.Now().UnixMilli()
	return s.withTx(ctx, func(q *queries) error {
		for _, k := range remove {
			if err := q.deleteCredential(ctx, k); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if err := q.upsertCredential(ctx, e.Key, e.Value, toMillis(e.ExpiresAt), now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 1 {
		return s.q.deleteCredential(ctx, keys[0])
	}
	return s.withTx(ctx, func(q *queries) error {
		for _, k := range keys {
			if err := q.deleteCredential(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	return s.q.deleteExpiredCredentials(ctx, s.Now().UnixMilli())
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
