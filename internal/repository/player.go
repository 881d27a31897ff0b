package repository

import (
	"context"
	"database/sql"
	"fmt"

	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/db"
	"osu-mp-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *PlayerRepository) Get(ctx context.Context, id int64) (*domain.Player, error) {
	player, err := r.queries.GetPlayer(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &domain.Player{
		ID:        player.ID,
		Username:  player.Username,
		Country:   player.Country,
		AvatarURL: player.AvatarUrl,
		UpdatedAt: player.UpdatedAt,
	}, nil
}

func upsertPlayers(ctx context.Context, qtx *db.Queries, players []domain.Player) error {
	return chunks(players, constants.DBBatchSize, func(batch []domain.Player) error {
		for _, player := range batch {
			err := qtx.UpsertPlayer(ctx, db.UpsertPlayerParams{
				ID:        player.ID,
				Username:  player.Username,
				Country:   player.Country,
				AvatarUrl: player.AvatarURL,
				UpdatedAt: player.UpdatedAt,
			})
			if err != nil {
				return fmt.Errorf("failed to upsert player %d: %w", player.ID, err)
			}
		}
		return nil
	})
}
