package repository

import (
	"context"
	"database/sql"
	"fmt"

	"osu-mp-tracker/internal/db"
	"osu-mp-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type FrameRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewFrameRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *FrameRepository {
	return &FrameRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *FrameRepository) InsertFrame(ctx context.Context, f domain.Frame) (bool, error) {
	n, err := r.queries.InsertFrame(ctx, db.InsertFrameParams{
		SessionID: f.SessionID,
		Cursor:    f.Cursor,
		Data:      f.Data,
		CreatedAt: f.CreatedAt,
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert frame %d/%d: %w", f.SessionID, f.Cursor, err)
	}
	return n > 0, nil
}

func (r *FrameRepository) ListFrames(ctx context.Context, sessionID int64) ([]domain.Frame, error) {
	rows, err := r.queries.ListFrames(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Frame, len(rows))
	for i, f := range rows {
		out[i] = domain.Frame{
			SessionID: f.SessionID,
			Cursor:    f.Cursor,
			Data:      f.Data,
			CreatedAt: f.CreatedAt,
		}
	}
	return out, nil
}

func (r *FrameRepository) HasFrames(ctx context.Context, sessionID int64) (bool, error) {
	return r.queries.HasFrames(ctx, sessionID)
}
