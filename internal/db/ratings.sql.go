package db

import (
	"context"
	"time"
)

const ratingColumns = `player_id, attribute_id, mu, sigma, star_ratings, pp_values, ordinal, games_played, win_amount, total_opponents_amount, created_at, updated_at`

func scanRatings(rows interface {
	Next() bool
	Scan(...interface{}) error
	Close() error
	Err() error
}) ([]Rating, error) {
	defer rows.Close()
	var items []Rating
	for rows.Next() {
		var i Rating
		if err := rows.Scan(
			&i.PlayerID,
			&i.AttributeID,
			&i.Mu,
			&i.Sigma,
			&i.StarRatings,
			&i.PpValues,
			&i.Ordinal,
			&i.GamesPlayed,
			&i.WinAmount,
			&i.TotalOpponentsAmount,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
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

const getRatingsByPlayers = `SELECT ` + ratingColumns + ` FROM ratings WHERE player_id IN (/*SLICE*/?)`

func (q *Queries) GetRatingsByPlayers(ctx context.Context, playerIDs []int64) ([]Rating, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}
	query, args := expandIn(getRatingsByPlayers, playerIDs)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanRatings(rows)
}

const listRatingsByPlayer = `
SELECT ` + ratingColumns + ` FROM ratings
WHERE player_id = ?
ORDER BY attribute_id
`

func (q *Queries) ListRatingsByPlayer(ctx context.Context, playerID int64) ([]Rating, error) {
	rows, err := q.db.QueryContext(ctx, listRatingsByPlayer, playerID)
	if err != nil {
		return nil, err
	}
	return scanRatings(rows)
}

const listLeaderboard = `
SELECT ` + ratingColumns + ` FROM ratings
WHERE attribute_id = ? AND games_played >= ?
ORDER BY ordinal DESC, player_id
LIMIT ?
`

type ListLeaderboardParams struct {
	AttributeID int64
	MinGames    int64
	Limit       int64
}

func (q *Queries) ListLeaderboard(ctx context.Context, arg ListLeaderboardParams) ([]Rating, error) {
	rows, err := q.db.QueryContext(ctx, listLeaderboard, arg.AttributeID, arg.MinGames, arg.Limit)
	if err != nil {
		return nil, err
	}
	return scanRatings(rows)
}

const upsertRating = `
INSERT INTO ratings (` + ratingColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (player_id, attribute_id) DO UPDATE SET
    mu = excluded.mu,
    sigma = excluded.sigma,
    star_ratings = excluded.star_ratings,
    pp_values = excluded.pp_values,
    ordinal = excluded.ordinal,
    games_played = excluded.games_played,
    win_amount = excluded.win_amount,
    total_opponents_amount = excluded.total_opponents_amount,
    updated_at = excluded.updated_at
`

type UpsertRatingParams struct {
	PlayerID             int64
	AttributeID          int64
	Mu                   float64
	Sigma                float64
	StarRatings          string
	PpValues             string
	Ordinal              float64
	GamesPlayed          int64
	WinAmount            int64
	TotalOpponentsAmount int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (q *Queries) UpsertRating(ctx context.Context, arg UpsertRatingParams) error {
	_, err := q.db.ExecContext(ctx, upsertRating,
		arg.PlayerID,
		arg.AttributeID,
		arg.Mu,
		arg.Sigma,
		arg.StarRatings,
		arg.PpValues,
		arg.Ordinal,
		arg.GamesPlayed,
		arg.WinAmount,
		arg.TotalOpponentsAmount,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}
