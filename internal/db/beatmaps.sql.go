package db

import (
	"context"
	"time"
)

const getBeatmapDifficulty = `
SELECT beatmap_id, mods, attributes, created_at FROM beatmap_difficulty
WHERE beatmap_id = ? AND mods = ?
`

type GetBeatmapDifficultyParams struct {
	BeatmapID int64
	Mods      int64
}

func (q *Queries) GetBeatmapDifficulty(ctx context.Context, arg GetBeatmapDifficultyParams) (BeatmapDifficulty, error) {
	var i BeatmapDifficulty
	err := q.db.QueryRowContext(ctx, getBeatmapDifficulty, arg.BeatmapID, arg.Mods).
		Scan(&i.BeatmapID, &i.Mods, &i.Attributes, &i.CreatedAt)
	return i, err
}

const upsertBeatmapDifficulty = `
INSERT INTO beatmap_difficulty (beatmap_id, mods, attributes, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (beatmap_id, mods) DO UPDATE SET
    attributes = excluded.attributes,
    created_at = excluded.created_at
`

type UpsertBeatmapDifficultyParams struct {
	BeatmapID  int64
	Mods       int64
	Attributes string
	CreatedAt  time.Time
}

func (q *Queries) UpsertBeatmapDifficulty(ctx context.Context, arg UpsertBeatmapDifficultyParams) error {
	_, err := q.db.ExecContext(ctx, upsertBeatmapDifficulty, arg.BeatmapID, arg.Mods, arg.Attributes, arg.CreatedAt)
	return err
}
