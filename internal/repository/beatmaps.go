package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"osu-mp-tracker/internal/db"
	"osu-mp-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// BeatmapRepository caches difficulty oracle results.
type BeatmapRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewBeatmapRepository(queries *db.Queries, logger zerolog.Logger) *BeatmapRepository {
	return &BeatmapRepository{queries: queries, logger: logger}
}

// Get returns nil when nothing is cached for the pair.
func (r *BeatmapRepository) Get(ctx context.Context, beatmapID int64, mods uint32) (*domain.BeatmapDifficulty, error) {
	row, err := r.queries.GetBeatmapDifficulty(ctx, db.GetBeatmapDifficultyParams{
		BeatmapID: beatmapID,
		Mods:      int64(mods),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get difficulty: %w", err)
	}

	out := &domain.BeatmapDifficulty{
		BeatmapID: row.BeatmapID,
		Mods:      uint32(row.Mods),
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Attributes), &out.Attributes); err != nil {
		return nil, fmt.Errorf("failed to decode difficulty of beatmap %d: %w", beatmapID, err)
	}
	return out, nil
}

func (r *BeatmapRepository) Upsert(ctx context.Context, d domain.BeatmapDifficulty) error {
	attrs, err := json.Marshal(d.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode difficulty: %w", err)
	}
	return r.queries.UpsertBeatmapDifficulty(ctx, db.UpsertBeatmapDifficultyParams{
		BeatmapID:  d.BeatmapID,
		Mods:       int64(d.Mods),
		Attributes: string(attrs),
		CreatedAt:  d.CreatedAt,
	})
}
