package service

import (
	"context"
	"errors"
	"fmt"

	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/rating"
	"osu-mp-tracker/internal/repository"

	"github.com/rs/zerolog"
)

var ErrInvalidArgument = errors.New("invalid argument")

type RatingView struct {
	domain.Rating
	Attribute  rating.Attribute
	StarRating float64
	Status     rating.Status
}

type PlayerProfile struct {
	Player  domain.Player
	Ratings []RatingView
}

type LeaderboardEntry struct {
	Rank   int
	Player domain.Player
	Rating RatingView
}

type PlayerService struct {
	players *repository.PlayerRepository
	ratings *repository.RatingRepository
	history *repository.HistoryRepository
	logger  zerolog.Logger
}

func NewPlayerService(players *repository.PlayerRepository, ratings *repository.RatingRepository, history *repository.HistoryRepository, logger zerolog.Logger) *PlayerService {
	return &PlayerService{players: players, ratings: ratings, history: history, logger: logger}
}

func toView(r domain.Rating) RatingView {
	attr, _ := rating.DecodeAttribute(r.AttributeID)
	return RatingView{
		Rating:     r,
		Attribute:  attr,
		StarRating: rating.StarRating(&r),
		Status:     rating.StatusOf(&r),
	}
}

func (s *PlayerService) GetPlayer(ctx context.Context, playerID int64) (*PlayerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.logger.Debug().Int64("player_id", playerID).Msg("getting player")

	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	ratings, err := s.ratings.ListByPlayer(ctx, playerID)
	if err != nil {
		s.logger.Error().Err(err).Int64("player_id", playerID).Msg("failed to list ratings")
		return nil, err
	}

	profile := &PlayerProfile{Player: *player, Ratings: make([]RatingView, 0, len(ratings))}
	for _, r := range ratings {
		profile.Ratings = append(profile.Ratings, toView(r))
	}
	return profile, nil
}

// GetRatingHistory returns the newest history rows of one attribute. A
// non-positive limit selects the page maximum.
func (s *PlayerService) GetRatingHistory(ctx context.Context, playerID int64, attributeID, limit int) ([]domain.RatingHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := rating.DecodeAttribute(attributeID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if limit <= 0 || limit > constants.HistoryPageLimit {
		limit = constants.HistoryPageLimit
	}
	return s.history.ListRatingHistory(ctx, playerID, attributeID, limit)
}

func (s *PlayerService) Leaderboard(ctx context.Context, attributeID, limit int) ([]LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := rating.DecodeAttribute(attributeID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if limit <= 0 || limit > constants.LeaderboardLimit {
		limit = constants.LeaderboardLimit
	}

	ratings, err := s.ratings.Leaderboard(ctx, attributeID, constants.LeaderboardMinGames, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(ratings))
	for i, r := range ratings {
		entry := LeaderboardEntry{Rank: i + 1, Player: domain.Player{ID: r.PlayerID}, Rating: toView(r)}
		p, err := s.players.Get(ctx, r.PlayerID)
		switch {
		case err == nil:
			entry.Player = *p
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
