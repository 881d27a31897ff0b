package repository

import (
	"context"
	"database/sql"
	"fmt"

	"osu-mp-tracker/internal/db"
	"osu-mp-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// HistoryRepository reads the append-only rating audit trail and the
// per-session outputs of the rating processor.
type HistoryRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewHistoryRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *HistoryRepository) ListRatingHistory(ctx context.Context, playerID int64, attributeID, limit int) ([]domain.RatingHistory, error) {
	rows, err := r.queries.ListRatingHistory(ctx, db.ListRatingHistoryParams{
		PlayerID:    playerID,
		AttributeID: int64(attributeID),
		Limit:       int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rating history: %w", err)
	}
	out := make([]domain.RatingHistory, len(rows))
	for i, h := range rows {
		out[i] = domain.RatingHistory{
			ID:            h.ID,
			PlayerID:      h.PlayerID,
			SessionID:     h.SessionID,
			GameID:        h.GameID,
			AttributeID:   int(h.AttributeID),
			OldMu:         h.OldMu,
			NewMu:         h.NewMu,
			OldSigma:      h.OldSigma,
			NewSigma:      h.NewSigma,
			OldOrdinal:    h.OldOrdinal,
			NewOrdinal:    h.NewOrdinal,
			StarRating:    h.StarRating,
			ActualRank:    int(h.ActualRank),
			PredictedRank: int(h.PredictedRank),
			CreatedAt:     h.CreatedAt,
		}
	}
	return out, nil
}

func (r *HistoryRepository) ListPlayerHistory(ctx context.Context, sessionID int64) ([]domain.PlayerHistory, error) {
	rows, err := r.queries.ListPlayerHistoryBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list player history: %w", err)
	}
	out := make([]domain.PlayerHistory, len(rows))
	for i, h := range rows {
		out[i] = domain.PlayerHistory{
			PlayerID:    h.PlayerID,
			SessionID:   h.SessionID,
			SessionCost: h.SessionCost,
			GamesPlayed: int(h.GamesPlayed),
			CreatedAt:   h.CreatedAt,
		}
	}
	return out, nil
}

// GetCalculationError returns ErrNotFound for sessions rated cleanly.
func (r *HistoryRepository) GetCalculationError(ctx context.Context, sessionID int64) (*domain.CalculationError, error) {
	row, err := r.queries.GetCalculationError(ctx, sessionID)
	if err != nil {
		return nil, notFound(err)
	}
	return &domain.CalculationError{
		SessionID: row.SessionID,
		Flags:     uint32(row.Flags),
		Log:       row.Log,
		CreatedAt: row.CreatedAt,
	}, nil
}

func insertRatingHistory(ctx context.Context, qtx *db.Queries, records []domain.RatingHistory) error {
	for _, record := range records {
		id := record.ID
		if id == "" {
			var err error
			id, err = gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate nanoid: %w", err)
			}
		}

		err := qtx.InsertRatingHistory(ctx, db.InsertRatingHistoryParams{
			ID:            id,
			PlayerID:      record.PlayerID,
			SessionID:     record.SessionID,
			GameID:        record.GameID,
			AttributeID:   int64(record.AttributeID),
			OldMu:         record.OldMu,
			NewMu:         record.NewMu,
			OldSigma:      record.OldSigma,
			NewSigma:      record.NewSigma,
			OldOrdinal:    record.OldOrdinal,
			NewOrdinal:    record.NewOrdinal,
			StarRating:    record.StarRating,
			ActualRank:    int64(record.ActualRank),
			PredictedRank: int64(record.PredictedRank),
			CreatedAt:     record.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to insert rating history for player %d game %d: %w", record.PlayerID, record.GameID, err)
		}
	}
	return nil
}

func upsertPlayerHistory(ctx context.Context, qtx *db.Queries, records []domain.PlayerHistory) error {
	for _, record := range records {
		err := qtx.UpsertPlayerHistory(ctx, db.UpsertPlayerHistoryParams{
			PlayerID:    record.PlayerID,
			SessionID:   record.SessionID,
			SessionCost: record.SessionCost,
			GamesPlayed: int64(record.GamesPlayed),
			CreatedAt:   record.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert player history %d/%d: %w", record.PlayerID, record.SessionID, err)
		}
	}
	return nil
}
