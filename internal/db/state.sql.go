package db

import (
	"context"
	"time"
)

const getState = `SELECT value FROM kv_state WHERE key = ?`

func (q *Queries) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getState, key).Scan(&value)
	return value, err
}

const setState = `
INSERT INTO kv_state (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    value = excluded.value,
    updated_at = excluded.updated_at
`

type SetStateParams struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

func (q *Queries) SetState(ctx context.Context, arg SetStateParams) error {
	_, err := q.db.ExecContext(ctx, setState, arg.Key, arg.Value, arg.UpdatedAt)
	return err
}
