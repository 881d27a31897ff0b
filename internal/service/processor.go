package service

import (
	"context"
	"fmt"
	"time"

	"osu-mp-tracker/internal/calcerr"
	"osu-mp-tracker/internal/classifier"
	"osu-mp-tracker/internal/config"
	"osu-mp-tracker/internal/difficulty"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"
	"osu-mp-tracker/internal/rating"
	"osu-mp-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RatingProcessor rates completed sessions in start-time order.
type RatingProcessor struct {
	sessions   SessionStore
	frames     FrameStore
	results    ResultStore
	ratings    rating.Store
	classifier *classifier.Classifier
	oracle     difficulty.Oracle
	calc       difficulty.PerformanceCalculator
	logger     zerolog.Logger

	interval    time.Duration
	parallelism int
	backlog     int
	chunkSize   int
}

func NewRatingProcessor(
	sessions SessionStore,
	frames FrameStore,
	results ResultStore,
	ratings rating.Store,
	cls *classifier.Classifier,
	oracle difficulty.Oracle,
	calc difficulty.PerformanceCalculator,
	cfg *config.Config,
	logger zerolog.Logger,
) *RatingProcessor {
	return &RatingProcessor{
		sessions:    sessions,
		frames:      frames,
		results:     results,
		ratings:     ratings,
		classifier:  cls,
		oracle:      oracle,
		calc:        calc,
		logger:      logger,
		interval:    cfg.ProcessInterval,
		parallelism: cfg.ProcessParallelism,
		backlog:     cfg.ProcessBacklog,
		chunkSize:   cfg.ChunkSize,
	}
}

func (p *RatingProcessor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error().Err(err).Msg("rating pass failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type preparedSession struct {
	session  domain.Session
	prepared *rating.Prepared
	errs     calcerr.Set
	players  []domain.Player
	failed   bool
}

// RunOnce rates the current backlog and returns how many sessions were
// committed. A chunk whose commit fails is retried one session at a time; a
// session that still cannot be stored is marked rejected. The pass stops only
// when even that fails, so later sessions are never rated ahead of it.
func (p *RatingProcessor) RunOnce(ctx context.Context) (int, error) {
	backlog, err := p.sessions.ListCompleted(ctx, p.backlog)
	if err != nil {
		return 0, err
	}
	if len(backlog) == 0 {
		return 0, nil
	}

	cache := rating.NewCache(p.ratings)
	engine := rating.NewEngine(p.oracle, p.calc, cache, p.logger)

	committed := 0
	for start := 0; start < len(backlog); start += p.chunkSize {
		end := min(start+p.chunkSize, len(backlog))
		n, err := p.processChunk(ctx, engine, cache, backlog[start:end])
		committed += n
		if err != nil {
			cache.Rollback()
			return committed, err
		}
	}

	p.logger.Info().Int("backlog", len(backlog)).Int("committed", committed).Msg("rating pass finished")
	return committed, nil
}

func (p *RatingProcessor) processChunk(ctx context.Context, engine *rating.Engine, cache *rating.Cache, chunk []domain.Session) (int, error) {
	prepared := make([]preparedSession, len(chunk))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i := range chunk {
		i := i
		g.Go(func() error {
			ps, err := p.prepare(gCtx, engine, chunk[i])
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				p.logger.Warn().Err(err).Int64("session_id", chunk[i].ID).Msg("failed to prepare session, skipping")
				ps = preparedSession{session: chunk[i], failed: true}
			}
			prepared[i] = ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	live := make([]preparedSession, 0, len(prepared))
	for _, ps := range prepared {
		if !ps.failed {
			live = append(live, ps)
		}
	}
	if len(live) == 0 {
		return 0, nil
	}

	err := p.commit(ctx, engine, cache, live)
	if err == nil {
		return len(live), nil
	}
	cache.Rollback()
	if ctx.Err() != nil {
		return 0, err
	}
	if len(live) > 1 {
		p.logger.Warn().Err(err).Int("sessions", len(live)).Msg("chunk commit failed, committing sessions one by one")
	}

	committed := 0
	for _, ps := range live {
		if len(live) > 1 {
			err = p.commit(ctx, engine, cache, []preparedSession{ps})
			if err == nil {
				committed++
				continue
			}
			cache.Rollback()
		}
		if rerr := p.reject(ctx, ps, err); rerr != nil {
			return committed, rerr
		}
		committed++
	}
	return committed, nil
}

// commit applies the sessions in order and stores them as one unit.
func (p *RatingProcessor) commit(ctx context.Context, engine *rating.Engine, cache *rating.Cache, batch []preparedSession) error {
	var result repository.ChunkResult
	for _, ps := range batch {
		sr := repository.SessionResult{
			SessionID: ps.session.ID,
			Status:    domain.SessionRejected,
			Players:   ps.players,
		}
		errs := ps.errs
		if ps.prepared != nil {
			out := engine.Apply(ps.prepared)
			sr.Status = domain.SessionRated
			sr.Histories = out.Histories
			sr.PlayerHistories = out.PlayerHistories
			errs = errs.Merge(out.Errors)
		}
		if !errs.Empty() {
			sr.Error = &domain.CalculationError{
				SessionID: ps.session.ID,
				Flags:     errs.Flags(),
				Log:       errs.Log(),
			}
		}
		result.Sessions = append(result.Sessions, sr)
	}
	result.Ratings = cache.Pending()

	if err := p.results.CommitChunk(ctx, result); err != nil {
		return fmt.Errorf("failed to commit chunk: %w", err)
	}
	cache.Commit()
	return nil
}

// reject stores a session that could not be committed as rejected, without
// any rating output.
func (p *RatingProcessor) reject(ctx context.Context, ps preparedSession, cause error) error {
	errs := ps.errs.With(calcerr.StorageRejected, "%v", cause)
	err := p.results.CommitChunk(ctx, repository.ChunkResult{
		Sessions: []repository.SessionResult{{
			SessionID: ps.session.ID,
			Status:    domain.SessionRejected,
			Error: &domain.CalculationError{
				SessionID: ps.session.ID,
				Flags:     errs.Flags(),
				Log:       errs.Log(),
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to reject session %d: %w", ps.session.ID, err)
	}
	p.logger.Warn().Err(cause).Int64("session_id", ps.session.ID).Msg("session could not be stored, rejected")
	return nil
}

// prepare runs everything that does not touch rating state: fold, classify,
// pre-filter and difficulty lookups.
func (p *RatingProcessor) prepare(ctx context.Context, engine *rating.Engine, s domain.Session) (preparedSession, error) {
	out := preparedSession{session: s}

	snap, err := p.frames.Load(ctx, s.ID)
	if err != nil {
		return out, err
	}
	if snap == nil {
		out.errs = out.errs.With(calcerr.NoStandardScores, "session %d has no frames", s.ID)
		return out, nil
	}
	out.players = roster(snap)

	res := p.classifier.Classify(s, snap)
	out.errs = res.Errors
	if res.Rejected() {
		return out, nil
	}

	games, errs, rejected := rating.Prefilter(res.Games)
	out.errs = out.errs.Merge(errs)
	if rejected {
		return out, nil
	}

	prepared, err := engine.Prepare(ctx, s.ID, games)
	if err != nil {
		return out, err
	}
	out.prepared = prepared
	return out, nil
}

func roster(snap *match.Snapshot) []domain.Player {
	now := time.Now()
	players := make([]domain.Player, 0, len(snap.Users))
	for _, u := range snap.Users {
		players = append(players, domain.Player{
			ID:        u.ID,
			Username:  u.Username,
			Country:   u.Country,
			AvatarURL: u.AvatarURL,
			UpdatedAt: now,
		})
	}
	return players
}
