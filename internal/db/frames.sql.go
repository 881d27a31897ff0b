package db

import (
	"context"
	"time"
)

const insertFrame = `
INSERT INTO frames (session_id, cursor, data, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (session_id, cursor) DO NOTHING
`

type InsertFrameParams struct {
	SessionID int64
	Cursor    int64
	Data      []byte
	CreatedAt time.Time
}

func (q *Queries) InsertFrame(ctx context.Context, arg InsertFrameParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertFrame, arg.SessionID, arg.Cursor, arg.Data, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listFrames = `
SELECT session_id, cursor, data, created_at FROM frames
WHERE session_id = ?
ORDER BY cursor
`

func (q *Queries) ListFrames(ctx context.Context, sessionID int64) ([]Frame, error) {
	rows, err := q.db.QueryContext(ctx, listFrames, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Frame
	for rows.Next() {
		var i Frame
		if err := rows.Scan(&i.SessionID, &i.Cursor, &i.Data, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const hasFrames = `SELECT EXISTS (SELECT 1 FROM frames WHERE session_id = ?)`

func (q *Queries) HasFrames(ctx context.Context, sessionID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, hasFrames, sessionID).Scan(&exists)
	return exists, err
}
