package sqlite

import (
	"context"
	"database/sql"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

const getCredential = `SELECT value, expires_at FROM credentials WHERE key = ?`

func (q *queries) getCredential(ctx context.Context, key string) (value string, expiresAt int64, err error) {
	err = q.db.QueryRowContext(ctx, getCredential, key).Scan(&value, &expiresAt)
	return value, expiresAt, err
}

const upsertCredential = `
INSERT INTO credentials (key, value, expires_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    value      = excluded.value,
    expires_at = excluded.expires_at,
    updated_at = excluded.updated_at`

func (q *queries) upsertCredential(ctx context.Context, key, value string, expiresAt, now int64) error {
	_, err := q.db.ExecContext(ctx, upsertCredential, key, value, expiresAt, now)
	return err
}

const deleteCredential = `DELETE FROM credentials WHERE key = ?`

func (q *queries) deleteCredential(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteCredential, key)
	return err
}

const deleteExpiredCredentials = `DELETE FROM credentials WHERE expires_at > 0 AND expires_at <= ?`

func (q *queries) deleteExpiredCredentials(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredCredentials, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
