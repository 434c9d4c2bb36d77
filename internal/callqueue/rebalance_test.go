package callqueue

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func seedActive(t *testing.T, store *MemoryStore, n int) []string {
	t.Helper()
	base := time.Unix(1700000000, 0).UTC()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("c%d", i+1)
		status := StatusQueued
		if i == 0 {
			status = StatusRequested
		}
		pos := i + 1
		err := store.Create(context.Background(), CallRequest{
			ID:            id,
			UserID:        fmt.Sprintf("u%d", i+1),
			Identity:      fmt.Sprintf("user_u%d", i+1),
			Status:        status,
			QueuePosition: &pos,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
			UpdatedAt:     base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestRebalance_AssignsDensePositions(t *testing.T) {
	store := NewMemoryStore()
	base := time.Unix(1700000000, 0).UTC()
	// Positions deliberately wrong and gappy.
	for i, pos := range []int{7, 3, 9} {
		p := pos
		err := store.Create(context.Background(), CallRequest{
			ID:            fmt.Sprintf("c%d", i+1),
			UserID:        fmt.Sprintf("u%d", i+1),
			Status:        StatusQueued,
			QueuePosition: &p,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if err := NewRebalancer(store).Rebalance(context.Background()); err != nil {
		t.Fatalf("rebalance: %v", err)
	}

	active, err := store.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	seen := map[int]bool{}
	for i, cr := range active {
		if cr.QueuePosition == nil {
			t.Fatalf("record %s has nil position", cr.ID)
		}
		if *cr.QueuePosition != i+1 {
			t.Fatalf("record %s: expected position %d, got %d", cr.ID, i+1, *cr.QueuePosition)
		}
		if seen[*cr.QueuePosition] {
			t.Fatalf("duplicate position %d", *cr.QueuePosition)
		}
		seen[*cr.QueuePosition] = true
	}
	// Head must be promoted out of queued.
	if active[0].Status != StatusRequested {
		t.Fatalf("expected head promoted to requested, got %s", active[0].Status)
	}
}

func TestRebalance_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	seedActive(t, store, 4)
	reb := NewRebalancer(store)

	if err := reb.Rebalance(context.Background()); err != nil {
		t.Fatalf("first rebalance: %v", err)
	}
	writes := store.Writes
	if err := reb.Rebalance(context.Background()); err != nil {
		t.Fatalf("second rebalance: %v", err)
	}
	if store.Writes != writes {
		t.Fatalf("expected zero writes on second rebalance, got %d", store.Writes-writes)
	}
}

func TestRebalance_PromotesAfterHeadLeaves(t *testing.T) {
	store := NewMemoryStore()
	ids := seedActive(t, store, 3)

	done := StatusCompleted
	now := time.Unix(1700000100, 0).UTC()
	if err := store.UpdateFields(context.Background(), ids[0], Fields{Status: &done, EndedAt: &now, ClearPosition: true}); err != nil {
		t.Fatalf("complete head: %v", err)
	}
	if err := NewRebalancer(store).Rebalance(context.Background()); err != nil {
		t.Fatalf("rebalance: %v", err)
	}

	active, _ := store.ListActive(context.Background())
	if len(active) != 2 {
		t.Fatalf("expected 2 active, got %d", len(active))
	}
	if active[0].ID != ids[1] || active[0].Status != StatusRequested || *active[0].QueuePosition != 1 {
		t.Fatalf("expected %s promoted to requested at position 1, got %+v", ids[1], active[0])
	}
}

func TestComputeRebalance_TieBrokenByArrivalOrder(t *testing.T) {
	store := NewMemoryStore()
	same := time.Unix(1700000000, 0).UTC()
	for _, id := range []string{"first", "second"} {
		if err := store.Create(context.Background(), CallRequest{ID: id, UserID: id, Status: StatusQueued, CreatedAt: same}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := NewRebalancer(store).Rebalance(context.Background()); err != nil {
		t.Fatalf("rebalance: %v", err)
	}
	active, _ := store.ListActive(context.Background())
	if active[0].ID != "first" || active[1].ID != "second" {
		t.Fatalf("expected insertion order preserved for equal timestamps, got %s, %s", active[0].ID, active[1].ID)
	}
}
