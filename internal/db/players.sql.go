package db

import (
	"context"
	"time"
)

const upsertPlayer = `
INSERT INTO players (id, username, country, avatar_url, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    username = excluded.username,
    country = excluded.country,
    avatar_url = excluded.avatar_url,
    updated_at = excluded.updated_at
`

type UpsertPlayerParams struct {
	ID        int64
	Username  string
	Country   string
	AvatarUrl string
	UpdatedAt time.Time
}

func (q *Queries) UpsertPlayer(ctx context.Context, arg UpsertPlayerParams) error {
	_, err := q.db.ExecContext(ctx, upsertPlayer, arg.ID, arg.Username, arg.Country, arg.AvatarUrl, arg.UpdatedAt)
	return err
}

const getPlayer = `SELECT id, username, country, avatar_url, updated_at FROM players WHERE id = ?`

func (q *Queries) GetPlayer(ctx context.Context, id int64) (Player, error) {
	var i Player
	err := q.db.QueryRowContext(ctx, getPlayer, id).Scan(&i.ID, &i.Username, &i.Country, &i.AvatarUrl, &i.UpdatedAt)
	return i, err
}
