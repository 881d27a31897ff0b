package db

import (
	"context"
	"time"
)

const insertRatingHistory = `
INSERT INTO rating_history (
    id, player_id, session_id, game_id, attribute_id,
    old_mu, new_mu, old_sigma, new_sigma, old_ordinal, new_ordinal,
    star_rating, actual_rank, predicted_rank, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (player_id, game_id, attribute_id) DO NOTHING
`

type InsertRatingHistoryParams struct {
	ID            string
	PlayerID      int64
	SessionID     int64
	GameID        int64
	AttributeID   int64
	OldMu         float64
	NewMu         float64
	OldSigma      float64
	NewSigma      float64
	OldOrdinal    float64
	NewOrdinal    float64
	StarRating    float64
	ActualRank    int64
	PredictedRank int64
	CreatedAt     time.Time
}

func (q *Queries) InsertRatingHistory(ctx context.Context, arg InsertRatingHistoryParams) error {
	_, err := q.db.ExecContext(ctx, insertRatingHistory,
		arg.ID,
		arg.PlayerID,
		arg.SessionID,
		arg.GameID,
		arg.AttributeID,
		arg.OldMu,
		arg.NewMu,
		arg.OldSigma,
		arg.NewSigma,
		arg.OldOrdinal,
		arg.NewOrdinal,
		arg.StarRating,
		arg.ActualRank,
		arg.PredictedRank,
		arg.CreatedAt,
	)
	return err
}

const listRatingHistory = `
SELECT id, player_id, session_id, game_id, attribute_id,
       old_mu, new_mu, old_sigma, new_sigma, old_ordinal, new_ordinal,
       star_rating, actual_rank, predicted_rank, created_at
FROM rating_history
WHERE player_id = ? AND attribute_id = ?
ORDER BY created_at DESC, game_id DESC
LIMIT ?
`

type ListRatingHistoryParams struct {
	PlayerID    int64
	AttributeID int64
	Limit       int64
}

func (q *Queries) ListRatingHistory(ctx context.Context, arg ListRatingHistoryParams) ([]RatingHistory, error) {
	rows, err := q.db.QueryContext(ctx, listRatingHistory, arg.PlayerID, arg.AttributeID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RatingHistory
	for rows.Next() {
		var i RatingHistory
		if err := rows.Scan(
			&i.ID,
			&i.PlayerID,
			&i.SessionID,
			&i.GameID,
			&i.AttributeID,
			&i.OldMu,
			&i.NewMu,
			&i.OldSigma,
			&i.NewSigma,
			&i.OldOrdinal,
			&i.NewOrdinal,
			&i.StarRating,
			&i.ActualRank,
			&i.PredictedRank,
			&i.CreatedAt,
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

const upsertPlayerHistory = `
INSERT INTO player_history (player_id, session_id, session_cost, games_played, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (player_id, session_id) DO UPDATE SET
    session_cost = excluded.session_cost,
    games_played = excluded.games_played
`

type UpsertPlayerHistoryParams struct {
	PlayerID    int64
	SessionID   int64
	SessionCost float64
	GamesPlayed int64
	CreatedAt   time.Time
}

func (q *Queries) UpsertPlayerHistory(ctx context.Context, arg UpsertPlayerHistoryParams) error {
	_, err := q.db.ExecContext(ctx, upsertPlayerHistory, arg.PlayerID, arg.SessionID, arg.SessionCost, arg.GamesPlayed, arg.CreatedAt)
	return err
}

const listPlayerHistoryBySession = `
SELECT player_id, session_id, session_cost, games_played, created_at
FROM player_history
WHERE session_id = ?
ORDER BY session_cost DESC, player_id
`

func (q *Queries) ListPlayerHistoryBySession(ctx context.Context, sessionID int64) ([]PlayerHistory, error) {
	rows, err := q.db.QueryContext(ctx, listPlayerHistoryBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlayerHistory
	for rows.Next() {
		var i PlayerHistory
		if err := rows.Scan(&i.PlayerID, &i.SessionID, &i.SessionCost, &i.GamesPlayed, &i.CreatedAt); err != nil {
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

const upsertCalculationError = `
INSERT INTO calculation_errors (session_id, flags, log, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET
    flags = excluded.flags,
    log = excluded.log,
    created_at = excluded.created_at
`

type UpsertCalculationErrorParams struct {
	SessionID int64
	Flags     int64
	Log       string
	CreatedAt time.Time
}

func (q *Queries) UpsertCalculationError(ctx context.Context, arg UpsertCalculationErrorParams) error {
	_, err := q.db.ExecContext(ctx, upsertCalculationError, arg.SessionID, arg.Flags, arg.Log, arg.CreatedAt)
	return err
}

const getCalculationError = `SELECT session_id, flags, log, created_at FROM calculation_errors WHERE session_id = ?`

func (q *Queries) GetCalculationError(ctx context.Context, sessionID int64) (CalculationError, error) {
	var i CalculationError
	err := q.db.QueryRowContext(ctx, getCalculationError, sessionID).Scan(&i.SessionID, &i.Flags, &i.Log, &i.CreatedAt)
	return i, err
}
