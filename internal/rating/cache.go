package rating

import (
	"context"
	"fmt"
	"sync"
	"time"

	"osu-mp-tracker/internal/domain"
)

// Store loads persisted ratings for a set of players.
type Store interface {
	GetRatings(ctx context.Context, playerIDs []int64) ([]domain.Rating, error)
}

type ratingKey struct {
	playerID    int64
	attributeID int
}

// Cache holds the ratings touched by one processor run. Population on miss
// happens under a single writer lock; mutations are recorded in an undo log
// so a failed chunk can be discarded.
type Cache struct {
	store Store

	mu      sync.Mutex
	loaded  map[int64]struct{}
	ratings map[ratingKey]*domain.Rating
	undo    map[ratingKey]*domain.Rating // nil value: created in this chunk
}

func NewCache(store Store) *Cache {
	return &Cache{
		store:   store,
		loaded:  make(map[int64]struct{}),
		ratings: make(map[ratingKey]*domain.Rating),
		undo:    make(map[ratingKey]*domain.Rating),
	}
}

// Load reads every not yet loaded player's ratings from the store.
func (c *Cache) Load(ctx context.Context, playerIDs []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var missing []int64
	seen := make(map[int64]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if _, ok := c.loaded[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}

	ratings, err := c.store.GetRatings(ctx, missing)
	if err != nil {
		return fmt.Errorf("failed to load ratings: %w", err)
	}
	for i := range ratings {
		r := ratings[i]
		c.ratings[ratingKey{r.PlayerID, r.AttributeID}] = &r
	}
	for _, id := range missing {
		c.loaded[id] = struct{}{}
	}
	return nil
}

// Peek returns a copy of the rating without marking it dirty.
func (c *Cache) Peek(playerID int64, attributeID int) (domain.Rating, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.ratings[ratingKey{playerID, attributeID}]
	if !ok {
		return domain.Rating{}, false
	}
	return r.Clone(), true
}

// Mutable returns the live rating, creating it on first contribution. The
// rating's state before the first mutation is kept for Rollback.
func (c *Cache) Mutable(playerID int64, attributeID int, now time.Time) *domain.Rating {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ratingKey{playerID, attributeID}
	r, ok := c.ratings[key]
	if !ok {
		r = newRating(playerID, attributeID, now)
		c.ratings[key] = r
		if _, recorded := c.undo[key]; !recorded {
			c.undo[key] = nil
		}
		return r
	}
	if _, recorded := c.undo[key]; !recorded {
		prev := r.Clone()
		c.undo[key] = &prev
	}
	return r
}

// Pending returns copies of every rating mutated since the last Commit or
// Rollback.
func (c *Cache) Pending() []domain.Rating {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Rating, 0, len(c.undo))
	for key := range c.undo {
		if r, ok := c.ratings[key]; ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Commit accepts the pending mutations once they are persisted.
func (c *Cache) Commit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.undo = make(map[ratingKey]*domain.Rating)
}

// Rollback restores every rating mutated since the last Commit.
func (c *Cache) Rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, prev := range c.undo {
		if prev == nil {
			delete(c.ratings, key)
			continue
		}
		c.ratings[key] = prev
	}
	c.undo = make(map[ratingKey]*domain.Rating)
}

// Dirty is the number of ratings awaiting Commit.
func (c *Cache) Dirty() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.undo)
}

func newRating(playerID int64, attributeID int, now time.Time) *domain.Rating {
	r := &domain.Rating{
		PlayerID:    playerID,
		AttributeID: attributeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if a, err := DecodeAttribute(attributeID); err == nil && a.Scoring == ScoringPP {
		return r
	}
	r.Mu = InitialMu
	r.Sigma = InitialSigma
	r.Ordinal = Ordinal(r.Mu, r.Sigma, 0)
	return r
}
