package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/db"
	"osu-mp-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type RatingRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewRatingRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *RatingRepository {
	return &RatingRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func toRating(row db.Rating) (domain.Rating, error) {
	r := domain.Rating{
		PlayerID:             row.PlayerID,
		AttributeID:          int(row.AttributeID),
		Mu:                   row.Mu,
		Sigma:                row.Sigma,
		Ordinal:              row.Ordinal,
		GamesPlayed:          int(row.GamesPlayed),
		WinAmount:            int(row.WinAmount),
		TotalOpponentsAmount: int(row.TotalOpponentsAmount),
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.StarRatings), &r.StarRatings); err != nil {
		return r, fmt.Errorf("failed to decode star ratings of %d/%d: %w", row.PlayerID, row.AttributeID, err)
	}
	if err := json.Unmarshal([]byte(row.PpValues), &r.PPValues); err != nil {
		return r, fmt.Errorf("failed to decode pp values of %d/%d: %w", row.PlayerID, row.AttributeID, err)
	}
	return r, nil
}

func toRatings(rows []db.Rating) ([]domain.Rating, error) {
	out := make([]domain.Rating, 0, len(rows))
	for _, row := range rows {
		r, err := toRating(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func encodeList(values []float64) (string, error) {
	if values == nil {
		values = []float64{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetRatings loads every rating of the given players.
func (r *RatingRepository) GetRatings(ctx context.Context, playerIDs []int64) ([]domain.Rating, error) {
	var out []domain.Rating
	err := chunks(playerIDs, constants.DBBatchSize, func(batch []int64) error {
		rows, err := r.queries.GetRatingsByPlayers(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to get ratings: %w", err)
		}
		ratings, err := toRatings(rows)
		if err != nil {
			return err
		}
		out = append(out, ratings...)
		return nil
	})
	return out, err
}

func (r *RatingRepository) ListByPlayer(ctx context.Context, playerID int64) ([]domain.Rating, error) {
	rows, err := r.queries.ListRatingsByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return toRatings(rows)
}

func (r *RatingRepository) Leaderboard(ctx context.Context, attributeID, minGames, limit int) ([]domain.Rating, error) {
	rows, err := r.queries.ListLeaderboard(ctx, db.ListLeaderboardParams{
		AttributeID: int64(attributeID),
		MinGames:    int64(minGames),
		Limit:       int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}
	return toRatings(rows)
}

func upsertRatings(ctx context.Context, qtx *db.Queries, ratings []domain.Rating) error {
	return chunks(ratings, constants.DBBatchSize, func(batch []domain.Rating) error {
		for _, rating := range batch {
			stars, err := encodeList(rating.StarRatings)
			if err != nil {
				return fmt.Errorf("failed to encode star ratings: %w", err)
			}
			pps, err := encodeList(rating.PPValues)
			if err != nil {
				return fmt.Errorf("failed to encode pp values: %w", err)
			}
			err = qtx.UpsertRating(ctx, db.UpsertRatingParams{
				PlayerID:             rating.PlayerID,
				AttributeID:          int64(rating.AttributeID),
				Mu:                   rating.Mu,
				Sigma:                rating.Sigma,
				StarRatings:          stars,
				PpValues:             pps,
				Ordinal:              rating.Ordinal,
				GamesPlayed:          int64(rating.GamesPlayed),
				WinAmount:            int64(rating.WinAmount),
				TotalOpponentsAmount: int64(rating.TotalOpponentsAmount),
				CreatedAt:            rating.CreatedAt,
				UpdatedAt:            rating.UpdatedAt,
			})
			if err != nil {
				return fmt.Errorf("failed to upsert rating %d/%d: %w", rating.PlayerID, rating.AttributeID, err)
			}
		}
		return nil
	})
}
