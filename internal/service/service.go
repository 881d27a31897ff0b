package service

import (
	"context"

	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"
	"osu-mp-tracker/internal/repository"
)

// SessionStore is the slice of the session repository the workers use.
type SessionStore interface {
	InsertBatch(ctx context.Context, sessions []domain.Session) (int, error)
	Get(ctx context.Context, id int64) (*domain.Session, error)
	ListInProgress(ctx context.Context, limit int) ([]domain.Session, error)
	ListCompleted(ctx context.Context, limit int) ([]domain.Session, error)
	SaveProgress(ctx context.Context, s *domain.Session) error
}

type StateStore interface {
	GetInt64(ctx context.Context, key string, fallback int64) (int64, error)
	SetInt64(ctx context.Context, key string, value int64) error
}

type FrameStore interface {
	Put(ctx context.Context, sessionID, cursor int64, raw []byte) error
	Has(ctx context.Context, sessionID int64) (bool, error)
	Load(ctx context.Context, sessionID int64) (*match.Snapshot, error)
}

type ResultStore interface {
	CommitChunk(ctx context.Context, chunk repository.ChunkResult) error
}
