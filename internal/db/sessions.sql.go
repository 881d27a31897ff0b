package db

import (
	"context"
	"database/sql"
	"time"
)

const sessionColumns = `id, name, status, start_time, end_time, cursor, last_event_at, is_tournament, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }) (Session, error) {
	var i Session
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Status,
		&i.StartTime,
		&i.EndTime,
		&i.Cursor,
		&i.LastEventAt,
		&i.IsTournament,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertSession = `
INSERT INTO sessions (` + sessionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`

type InsertSessionParams struct {
	ID           int64
	Name         string
	Status       string
	StartTime    time.Time
	EndTime      sql.NullTime
	Cursor       int64
	LastEventAt  time.Time
	IsTournament bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (q *Queries) InsertSession(ctx context.Context, arg InsertSessionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertSession,
		arg.ID,
		arg.Name,
		arg.Status,
		arg.StartTime,
		arg.EndTime,
		arg.Cursor,
		arg.LastEventAt,
		arg.IsTournament,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getSession = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

func (q *Queries) GetSession(ctx context.Context, id int64) (Session, error) {
	return scanSession(q.db.QueryRowContext(ctx, getSession, id))
}

const listSchedulableSessions = `
SELECT ` + sessionColumns + ` FROM sessions
WHERE status = ?
ORDER BY is_tournament DESC, id
LIMIT ?
`

type ListSessionsParams struct {
	Status string
	Limit  int64
}

func (q *Queries) ListSchedulableSessions(ctx context.Context, arg ListSessionsParams) ([]Session, error) {
	return q.listSessions(ctx, listSchedulableSessions, arg.Status, arg.Limit)
}

const listSessionBacklog = `
SELECT ` + sessionColumns + ` FROM sessions
WHERE status = ?
ORDER BY start_time, id
LIMIT ?
`

func (q *Queries) ListSessionBacklog(ctx context.Context, arg ListSessionsParams) ([]Session, error) {
	return q.listSessions(ctx, listSessionBacklog, arg.Status, arg.Limit)
}

func (q *Queries) listSessions(ctx context.Context, query string, args ...interface{}) ([]Session, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Session
	for rows.Next() {
		i, err := scanSession(rows)
		if err != nil {
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

const updateSessionProgress = `
UPDATE sessions
SET name = ?, status = ?, end_time = ?, cursor = ?, last_event_at = ?, updated_at = ?
WHERE id = ?
`

type UpdateSessionProgressParams struct {
	Name        string
	Status      string
	EndTime     sql.NullTime
	Cursor      int64
	LastEventAt time.Time
	UpdatedAt   time.Time
	ID          int64
}

func (q *Queries) UpdateSessionProgress(ctx context.Context, arg UpdateSessionProgressParams) error {
	_, err := q.db.ExecContext(ctx, updateSessionProgress,
		arg.Name,
		arg.Status,
		arg.EndTime,
		arg.Cursor,
		arg.LastEventAt,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

const updateSessionStatus = `UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`

type UpdateSessionStatusParams struct {
	Status    string
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) UpdateSessionStatus(ctx context.Context, arg UpdateSessionStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateSessionStatus, arg.Status, arg.UpdatedAt, arg.ID)
	return err
}

const countSessionsByStatus = `SELECT status, COUNT(*) FROM sessions GROUP BY status`

type CountSessionsByStatusRow struct {
	Status string
	Count  int64
}

func (q *Queries) CountSessionsByStatus(ctx context.Context) ([]CountSessionsByStatusRow, error) {
	rows, err := q.db.QueryContext(ctx, countSessionsByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountSessionsByStatusRow
	for rows.Next() {
		var i CountSessionsByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
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
