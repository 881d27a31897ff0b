package service

import (
	"context"
	"errors"

	"osu-mp-tracker/internal/calcerr"
	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// SessionDetail is a session together with what the rating pass recorded
// for it.
type SessionDetail struct {
	Session domain.Session
	Errors  calcerr.Set
	Players []domain.PlayerHistory
}

type SessionService struct {
	sessions *repository.SessionRepository
	history  *repository.HistoryRepository
	frames   FrameStore
	logger   zerolog.Logger
}

func NewSessionService(sessions *repository.SessionRepository, history *repository.HistoryRepository, frames FrameStore, logger zerolog.Logger) *SessionService {
	return &SessionService{sessions: sessions, history: history, frames: frames, logger: logger}
}

func (s *SessionService) GetSession(ctx context.Context, sessionID int64) (*SessionDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	detail := &SessionDetail{Session: *session}

	calcErr, err := s.history.GetCalculationError(ctx, sessionID)
	switch {
	case err == nil:
		detail.Errors = calcerr.FromFlags(calcErr.Flags, calcErr.Log)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	detail.Players, err = s.history.ListPlayerHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int64("session_id", sessionID).
		Str("status", string(session.Status)).
		Int("players", len(detail.Players)).
		Msg("session loaded")
	return detail, nil
}

// Stats counts sessions per pipeline status.
func (s *SessionService) Stats(ctx context.Context) (map[domain.SessionStatus]int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.sessions.CountByStatus(ctx)
}
