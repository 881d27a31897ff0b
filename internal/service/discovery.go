package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"osu-mp-tracker/internal/api"
	"osu-mp-tracker/internal/classifier"
	"osu-mp-tracker/internal/config"
	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/repository"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/rs/zerolog"
)

const discoveryCursorKey = "discovery_cursor"

// DiscoveryService walks the upstream session listing and records every new
// session as in progress.
type DiscoveryService struct {
	upstream api.Upstream
	sessions SessionStore
	state    StateStore
	startID  int64
	backoff  time.Duration
	logger   zerolog.Logger

	// seen holds ids inserted by this process. Ids it reports as new are
	// inserted directly; possible hits are confirmed against the store.
	seen *bloom.BloomFilter
}

func NewDiscoveryService(upstream api.Upstream, sessions SessionStore, state StateStore, cfg *config.Config, logger zerolog.Logger) *DiscoveryService {
	return &DiscoveryService{
		upstream: upstream,
		sessions: sessions,
		state:    state,
		startID:  cfg.DiscoveryStartID,
		backoff:  constants.DiscoveryBackoff,
		logger:   logger,
		seen:     bloom.NewWithEstimates(constants.DiscoveryFilterSize, constants.DiscoveryFilterFP),
	}
}

// Run polls until ctx is cancelled. An empty listing means the upstream has
// nothing newer yet, so the loop backs off before asking again.
func (s *DiscoveryService) Run(ctx context.Context) error {
	cursor, err := s.state.GetInt64(ctx, discoveryCursorKey, s.startID)
	if err != nil {
		return fmt.Errorf("failed to read discovery cursor: %w", err)
	}
	s.logger.Info().Int64("cursor", cursor).Msg("discovery started")

	for {
		n, next, err := s.Step(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Int64("cursor", cursor).Msg("discovery step failed")
		}
		cursor = next

		if n > 0 && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff):
		}
	}
}

// Step fetches one page after cursor and returns how many sessions it held
// and the cursor to continue from.
func (s *DiscoveryService) Step(ctx context.Context, cursor int64) (int, int64, error) {
	summaries, err := s.upstream.GetSessionsSince(ctx, cursor)
	if err != nil {
		return 0, cursor, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(summaries) == 0 {
		return 0, cursor, nil
	}

	now := time.Now()
	next := cursor
	fresh := make([]domain.Session, 0, len(summaries))
	for _, m := range summaries {
		if m.ID > next {
			next = m.ID
		}
		known, err := s.known(ctx, m.ID)
		if err != nil {
			return 0, cursor, err
		}
		if known {
			continue
		}
		fresh = append(fresh, domain.Session{
			ID:           m.ID,
			Name:         m.Name,
			Status:       domain.SessionInProgress,
			StartTime:    m.StartTime,
			LastEventAt:  m.StartTime,
			IsTournament: classifier.IsTournament(m.Name),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	inserted, err := s.sessions.InsertBatch(ctx, fresh)
	if err != nil {
		return 0, cursor, fmt.Errorf("failed to insert sessions: %w", err)
	}
	for _, sess := range fresh {
		s.seen.Add(idKey(sess.ID))
	}
	if err := s.state.SetInt64(ctx, discoveryCursorKey, next); err != nil {
		return 0, cursor, fmt.Errorf("failed to save discovery cursor: %w", err)
	}

	s.logger.Info().
		Int("listed", len(summaries)).
		Int("inserted", inserted).
		Int64("cursor", next).
		Msg("sessions discovered")
	return len(summaries), next, nil
}

func (s *DiscoveryService) known(ctx context.Context, id int64) (bool, error) {
	if !s.seen.Test(idKey(id)) {
		return false, nil
	}
	_, err := s.sessions.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check session %d: %w", id, err)
	}
	return true, nil
}

func idKey(id int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}
