package validation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"votepipeline/contexts/voteprocessing/application"
	"votepipeline/contexts/voteprocessing/domain/entities"
	"votepipeline/contexts/voteprocessing/ports"
)

// ElectionWindowCache is a periodically refreshed snapshot of every
// election's voting window, so the worker's belt-and-suspenders window
// check does not hit the Elections repository on every delivery.
type ElectionWindowCache struct {
	Elections ports.ElectionRepository
	Logger    *slog.Logger

	mu   sync.RWMutex
	byID map[int64]entities.Election
}

func NewElectionWindowCache(elections ports.ElectionRepository) *ElectionWindowCache {
	return &ElectionWindowCache{Elections: elections, byID: make(map[int64]entities.Election)}
}

// Refresh reloads the full election list once.
func (c *ElectionWindowCache) Refresh(ctx context.Context) error {
	elections, err := c.Elections.ListElections(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]entities.Election, len(elections))
	for _, e := range elections {
		byID[e.ID] = e
	}
	c.mu.Lock()
	c.byID = byID
	c.mu.Unlock()
	return nil
}

// Run refreshes the cache every interval until ctx is cancelled. The first
// refresh happens as soon as Run starts; the validator runs it alongside
// its consumers, and an election not yet in the cache passes the worker's
// window check. A failed refresh is logged and retried on the next tick rather
// than torn down, since the cache is a recheck, not the source of truth.
func (c *ElectionWindowCache) Run(ctx context.Context, interval time.Duration) error {
	logger := application.ResolveLogger(c.Logger)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if err := c.Refresh(ctx); err != nil {
		logger.Warn("election window cache initial refresh failed",
			"event", "election_window_cache_refresh_failed",
			"module", "contexts/voteprocessing/application/validation",
			"layer", "cache",
			"error", err.Error(),
		)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				logger.Warn("election window cache refresh failed",
					"event", "election_window_cache_refresh_failed",
					"module", "contexts/voteprocessing/application/validation",
					"layer", "cache",
					"error", err.Error(),
				)
			}
		}
	}
}

// Lookup reports whether electionID is known to the cache and, if so,
// returns its window.
func (c *ElectionWindowCache) Lookup(electionID int64) (entities.Election, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[electionID]
	return e, ok
}
