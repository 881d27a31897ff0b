package difficulty

import (
	"context"
	"fmt"
	"sync"
	"time"

	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store persists oracle results. Get returns (nil, nil) when nothing is stored.
type Store interface {
	Get(ctx context.Context, beatmapID int64, mods uint32) (*domain.BeatmapDifficulty, error)
	Upsert(ctx context.Context, d domain.BeatmapDifficulty) error
}

type cacheKey struct {
	beatmapID int64
	mods      match.Mods
}

// Cached wraps an Oracle with an in-memory map, a persistent store and a
// single-flight group, so concurrent requests for the same chart share one
// upstream call.
type Cached struct {
	next   Oracle
	store  Store
	logger zerolog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	memo  map[cacheKey]*domain.DifficultyAttributes
}

func NewCached(next Oracle, store Store, logger zerolog.Logger) *Cached {
	return &Cached{
		next:   next,
		store:  store,
		logger: logger,
		memo:   make(map[cacheKey]*domain.DifficultyAttributes),
	}
}

func (c *Cached) GetDifficulty(ctx context.Context, beatmapID int64, mods match.Mods) (*domain.DifficultyAttributes, error) {
	key := cacheKey{beatmapID: beatmapID, mods: Relevant(mods)}

	c.mu.RLock()
	attrs, ok := c.memo[key]
	c.mu.RUnlock()
	if ok {
		return attrs, nil
	}

	v, err, shared := c.group.Do(fmt.Sprintf("%d:%d", key.beatmapID, key.mods), func() (any, error) {
		return c.load(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug().Int64("beatmap_id", beatmapID).Str("mods", key.mods.String()).Msg("shared in-flight difficulty lookup")
	}
	return v.(*domain.DifficultyAttributes), nil
}

func (c *Cached) load(ctx context.Context, key cacheKey) (*domain.DifficultyAttributes, error) {
	stored, err := c.store.Get(ctx, key.beatmapID, uint32(key.mods))
	if err != nil {
		return nil, fmt.Errorf("failed to read stored difficulty: %w", err)
	}
	if stored != nil {
		attrs := stored.Attributes
		c.remember(key, &attrs)
		return &attrs, nil
	}

	attrs, err := c.next.GetDifficulty(ctx, key.beatmapID, key.mods)
	if err != nil {
		return nil, err
	}
	if attrs != nil {
		if err := c.store.Upsert(ctx, domain.BeatmapDifficulty{
			BeatmapID:  key.beatmapID,
			Mods:       uint32(key.mods),
			Attributes: *attrs,
			CreatedAt:  time.Now(),
		}); err != nil {
			c.logger.Warn().Err(err).Int64("beatmap_id", key.beatmapID).Msg("failed to store difficulty")
		}
	}
	c.remember(key, attrs)
	return attrs, nil
}

func (c *Cached) remember(key cacheKey, attrs *domain.DifficultyAttributes) {
	c.mu.Lock()
	c.memo[key] = attrs
	c.mu.Unlock()
}
