package validation

import (
	"context"
	"testing"
	"time"

	"votepipeline/contexts/voteprocessing/adapters/memory"
	"votepipeline/contexts/voteprocessing/domain/entities"
)

func TestElectionWindowCacheRefreshPopulatesLookup(t *testing.T) {
	store := memory.NewAuditTallyStore()
	store.SeedElection(entities.Election{
		ID:      42,
		Method:  entities.MethodSingle,
		StartAt: time.Now().Add(-time.Hour),
		EndAt:   time.Now().Add(time.Hour),
	})

	cache := NewElectionWindowCache(store)
	if _, known := cache.Lookup(42); known {
		t.Fatalf("expected election 42 to be unknown before the first refresh")
	}

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	election, known := cache.Lookup(42)
	if !known {
		t.Fatalf("expected election 42 to be known after refresh")
	}
	if !election.Open(time.Now()) {
		t.Fatalf("expected election 42 to be open")
	}
	if _, known := cache.Lookup(99); known {
		t.Fatalf("expected election 99 to remain unknown")
	}
}

func TestElectionWindowCacheRunStopsOnContextCancel(t *testing.T) {
	store := memory.NewAuditTallyStore()
	cache := NewElectionWindowCache(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cache.Run(ctx, time.Millisecond) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Run to return nil on cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for Run to stop after cancellation")
	}
}
