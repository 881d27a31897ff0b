package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/db"
	"osu-mp-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// SessionResult is everything the rating processor writes for one session.
type SessionResult struct {
	SessionID       int64
	Status          domain.SessionStatus
	Histories       []domain.RatingHistory
	PlayerHistories []domain.PlayerHistory
	Error           *domain.CalculationError
	Players         []domain.Player
}

// ChunkResult is one commit unit of the rating processor.
type ChunkResult struct {
	Ratings  []domain.Rating
	Sessions []SessionResult
}

type ResultRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewResultRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *ResultRepository {
	return &ResultRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// CommitChunk writes a whole chunk in one transaction. Nothing is written
// when any statement fails.
func (r *ResultRepository) CommitChunk(ctx context.Context, chunk ChunkResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := time.Now()

	var players []domain.Player
	for _, s := range chunk.Sessions {
		players = append(players, s.Players...)
	}
	if err := upsertPlayers(ctx, qtx, players); err != nil {
		return err
	}
	if err := upsertRatings(ctx, qtx, chunk.Ratings); err != nil {
		return err
	}

	for _, s := range chunk.Sessions {
		err := chunks(s.Histories, constants.DBBatchSize, func(batch []domain.RatingHistory) error {
			return insertRatingHistory(ctx, qtx, batch)
		})
		if err != nil {
			return err
		}
		if err := upsertPlayerHistory(ctx, qtx, s.PlayerHistories); err != nil {
			return err
		}
		if s.Error != nil {
			err := qtx.UpsertCalculationError(ctx, db.UpsertCalculationErrorParams{
				SessionID: s.SessionID,
				Flags:     int64(s.Error.Flags),
				Log:       s.Error.Log,
				CreatedAt: now,
			})
			if err != nil {
				return fmt.Errorf("failed to store calculation error for session %d: %w", s.SessionID, err)
			}
		}
		err = qtx.UpdateSessionStatus(ctx, db.UpdateSessionStatusParams{
			Status:    string(s.Status),
			UpdatedAt: now,
			ID:        s.SessionID,
		})
		if err != nil {
			return fmt.Errorf("failed to set session %d status: %w", s.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunk: %w", err)
	}

	r.logger.Info().
		Int("sessions", len(chunk.Sessions)).
		Int("ratings", len(chunk.Ratings)).
		Int("players", len(players)).
		Msg("chunk committed")
	return nil
}
