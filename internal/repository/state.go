package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"osu-mp-tracker/internal/db"

	"github.com/rs/zerolog"
)

// StateRepository keeps small pieces of worker state across restarts.
type StateRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewStateRepository(queries *db.Queries, logger zerolog.Logger) *StateRepository {
	return &StateRepository{queries: queries, logger: logger}
}

// GetInt64 returns fallback when the key was never written.
func (r *StateRepository) GetInt64(ctx context.Context, key string, fallback int64) (int64, error) {
	raw, err := r.queries.GetState(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read state %s: %w", key, err)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("state %s is not an integer: %w", key, err)
	}
	return v, nil
}

func (r *StateRepository) SetInt64(ctx context.Context, key string, value int64) error {
	err := r.queries.SetState(ctx, db.SetStateParams{
		Key:       key,
		Value:     strconv.FormatInt(value, 10),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to write state %s: %w", key, err)
	}
	return nil
}
