package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"osu-mp-tracker/internal/api"
	"osu-mp-tracker/internal/config"
	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SessionUpdater pulls new events for every in-progress session and decides
// when a session is complete.
type SessionUpdater struct {
	upstream    api.Upstream
	sessions    SessionStore
	frames      FrameStore
	interval    time.Duration
	parallelism int
	logger      zerolog.Logger
	now         func() time.Time
}

func NewSessionUpdater(upstream api.Upstream, sessions SessionStore, frames FrameStore, cfg *config.Config, logger zerolog.Logger) *SessionUpdater {
	return &SessionUpdater{
		upstream:    upstream,
		sessions:    sessions,
		frames:      frames,
		interval:    cfg.UpdateInterval,
		parallelism: cfg.UpdateParallelism,
		logger:      logger,
		now:         time.Now,
	}
}

func (u *SessionUpdater) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		if err := u.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			u.logger.Error().Err(err).Msg("update pass failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce updates every in-progress session once. Each session is handled
// by exactly one goroutine.
func (u *SessionUpdater) RunOnce(ctx context.Context) error {
	sessions, err := u.sessions.ListInProgress(ctx, constants.UpdateBatch)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(u.parallelism)
	for i := range sessions {
		s := &sessions[i]
		g.Go(func() error {
			if err := u.Update(gCtx, s); err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				u.logger.Warn().Err(err).Int64("session_id", s.ID).Msg("failed to update session")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ev := u.logger.Debug().Int("sessions", len(sessions))
	if r, ok := u.upstream.(api.RateLimitReporter); ok {
		info := r.GetRateLimitInfo()
		ev = ev.Int("ratelimit_limit", info.Limit).Int("ratelimit_remaining", info.Remaining)
	}
	ev.Msg("update pass finished")
	return nil
}

// Update fetches everything after the session's cursor, archives each raw
// frame and advances the session. A session with no stored frame is fetched
// from its first event.
func (u *SessionUpdater) Update(ctx context.Context, s *domain.Session) error {
	has, err := u.frames.Has(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("failed to check frames: %w", err)
	}
	cursor := s.Cursor
	if !has {
		cursor = 0
	}

	var (
		running  match.Snapshot
		advanced bool
	)
	for {
		frame, err := u.upstream.GetFrame(ctx, s.ID, cursor)
		if errors.Is(err, api.ErrNotFound) {
			s.Status = domain.SessionGone
			u.logger.Info().Int64("session_id", s.ID).Msg("session gone upstream")
			return u.sessions.SaveProgress(ctx, s)
		}
		if err != nil {
			return fmt.Errorf("failed to fetch session %d after %d: %w", s.ID, cursor, err)
		}

		running = match.Merge(running, match.TruncateOngoing(*frame.Snapshot))

		// The frame is keyed by the cursor it moves the session to, so a
		// re-fetched ongoing game lands under a new key once it finishes.
		next := cursor
		if id := running.LastEventID(); id > next {
			next = id
		}
		if err := u.frames.Put(ctx, s.ID, next, frame.Raw); err != nil {
			return err
		}

		if next > cursor {
			advanced = true
			s.LastEventAt = running.LastEventTime()
		}
		if running.Match.Name != "" {
			s.Name = running.Match.Name
		}
		if running.Match.EndTime != nil {
			end := *running.Match.EndTime
			s.EndTime = &end
		}

		if !frame.Snapshot.HasMore() || next == cursor {
			cursor = next
			break
		}
		cursor = next
	}
	s.Cursor = cursor

	switch {
	case s.EndTime != nil:
		s.Status = domain.SessionCompleted
	case !advanced && u.now().Sub(s.LastEventAt) > constants.IdleCompletion:
		end := s.LastEventAt
		s.EndTime = &end
		s.Status = domain.SessionCompleted
	}

	if err := u.sessions.SaveProgress(ctx, s); err != nil {
		return fmt.Errorf("failed to save session %d: %w", s.ID, err)
	}
	if s.Status == domain.SessionCompleted {
		u.logger.Info().Int64("session_id", s.ID).Int64("cursor", s.Cursor).Msg("session completed")
	}
	return nil
}
