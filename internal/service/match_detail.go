package service

import (
	"context"

	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/match"
	"osu-mp-tracker/internal/repository"
)

// GetSessionGames rebuilds the session from its archived frames and returns
// its finished games in event order.
func (s *SessionService) GetSessionGames(ctx context.Context, sessionID int64) ([]match.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	snap, err := s.frames.Load(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Int64("session_id", sessionID).Msg("failed to load frames")
		return nil, err
	}
	if snap == nil {
		return nil, repository.ErrNotFound
	}

	var games []match.Game
	for _, g := range snap.Games() {
		if g.EndTime == nil {
			continue
		}
		games = append(games, g.Clone())
	}
	return games, nil
}
