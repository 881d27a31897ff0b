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

type SessionRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewSessionRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func toSession(s db.Session) domain.Session {
	return domain.Session{
		ID:           s.ID,
		Name:         s.Name,
		Status:       domain.SessionStatus(s.Status),
		StartTime:    s.StartTime,
		EndTime:      timePtr(s.EndTime),
		Cursor:       s.Cursor,
		LastEventAt:  s.LastEventAt,
		IsTournament: s.IsTournament,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toSessions(rows []db.Session) []domain.Session {
	out := make([]domain.Session, len(rows))
	for i, s := range rows {
		out[i] = toSession(s)
	}
	return out
}

// InsertBatch stores newly discovered sessions, skipping known ids. It
// returns how many rows were new.
func (r *SessionRepository) InsertBatch(ctx context.Context, sessions []domain.Session) (int, error) {
	if len(sessions) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	var inserted int
	err = chunks(sessions, constants.DBBatchSize, func(batch []domain.Session) error {
		for _, s := range batch {
			n, err := qtx.InsertSession(ctx, db.InsertSessionParams{
				ID:           s.ID,
				Name:         s.Name,
				Status:       string(s.Status),
				StartTime:    s.StartTime,
				EndTime:      nullTime(s.EndTime),
				Cursor:       s.Cursor,
				LastEventAt:  s.LastEventAt,
				IsTournament: s.IsTournament,
				CreatedAt:    s.CreatedAt,
				UpdatedAt:    s.UpdatedAt,
			})
			if err != nil {
				return fmt.Errorf("failed to insert session %d: %w", s.ID, err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sessions: %w", err)
	}
	return inserted, nil
}

func (r *SessionRepository) Get(ctx context.Context, id int64) (*domain.Session, error) {
	s, err := r.queries.GetSession(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	out := toSession(s)
	return &out, nil
}

// ListInProgress returns sessions still being fetched, tournament lobbies
// first and then oldest first.
func (r *SessionRepository) ListInProgress(ctx context.Context, limit int) ([]domain.Session, error) {
	rows, err := r.queries.ListSchedulableSessions(ctx, db.ListSessionsParams{
		Status: string(domain.SessionInProgress),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list in-progress sessions: %w", err)
	}
	return toSessions(rows), nil
}

// ListCompleted returns fetched sessions awaiting rating in start-time order.
func (r *SessionRepository) ListCompleted(ctx context.Context, limit int) ([]domain.Session, error) {
	rows, err := r.queries.ListSessionBacklog(ctx, db.ListSessionsParams{
		Status: string(domain.SessionCompleted),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed sessions: %w", err)
	}
	return toSessions(rows), nil
}

// SaveProgress persists the fetcher-owned fields of a session.
func (r *SessionRepository) SaveProgress(ctx context.Context, s *domain.Session) error {
	s.UpdatedAt = time.Now()
	err := r.queries.UpdateSessionProgress(ctx, db.UpdateSessionProgressParams{
		Name:        s.Name,
		Status:      string(s.Status),
		EndTime:     nullTime(s.EndTime),
		Cursor:      s.Cursor,
		LastEventAt: s.LastEventAt,
		UpdatedAt:   s.UpdatedAt,
		ID:          s.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to save session %d: %w", s.ID, err)
	}
	return nil
}

func (r *SessionRepository) CountByStatus(ctx context.Context) (map[domain.SessionStatus]int, error) {
	rows, err := r.queries.CountSessionsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	out := make(map[domain.SessionStatus]int, len(rows))
	for _, row := range rows {
		out[domain.SessionStatus(row.Status)] = int(row.Count)
	}
	return out, nil
}
