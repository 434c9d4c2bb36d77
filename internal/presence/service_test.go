package presence

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(now *time.Time) *Service {
	s := NewService(NewMemoryStore(), 45*time.Second, 6)
	s.clock = func() time.Time { return *now }
	return s
}

func TestPresence_OnlineWithinWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	s := newTestService(&now)

	if err := s.Heartbeat(ctx); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	now = now.Add(40 * time.Second)
	snap, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !snap.Online {
		t.Fatalf("expected online at +40s")
	}
	if snap.LastSeen != time.Unix(1700000000, 0).UTC() {
		t.Fatalf("unexpected last_seen %v", snap.LastSeen)
	}
}

func TestPresence_OfflineAfterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	s := newTestService(&now)

	if err := s.Heartbeat(ctx); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	now = now.Add(50 * time.Second)
	snap, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Online {
		t.Fatalf("expected offline at +50s")
	}
}

func TestPresence_OfflineWithoutHeartbeat(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	snap, err := newTestService(&now).Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Online {
		t.Fatalf("expected offline without heartbeat")
	}
	if !snap.LastSeen.IsZero() {
		t.Fatalf("expected zero last_seen, got %v", snap.LastSeen)
	}
}

func TestPresence_WaitEstimateExcludesCurrentCall(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestService(&now)
	s.ActiveCount = func(context.Context) (int, error) { return 3, nil }

	snap, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.ActiveCalls != 3 {
		t.Fatalf("expected 3 active calls, got %d", snap.ActiveCalls)
	}
	if snap.EstimatedWaitMinutes != 12 {
		t.Fatalf("expected 12 minute estimate, got %d", snap.EstimatedWaitMinutes)
	}
}

func TestPresence_EmptyQueueHasZeroWait(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestService(&now)
	s.ActiveCount = func(context.Context) (int, error) { return 0, nil }

	snap, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.EstimatedWaitMinutes != 0 {
		t.Fatalf("expected zero estimate, got %d", snap.EstimatedWaitMinutes)
	}
}

func TestPresence_ActiveCountErrorPropagates(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s := newTestService(&now)
	boom := errors.New("store down")
	s.ActiveCount = func(context.Context) (int, error) { return 0, boom }

	if _, err := s.Read(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected count error, got %v", err)
	}
}

func TestPresence_ClearRemovesHeartbeat(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	store := NewMemoryStore()
	s := NewService(store, 45*time.Second, 6)
	s.clock = func() time.Time { return now }

	if err := s.Heartbeat(ctx); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	snap, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Online {
		t.Fatalf("expected offline after clear")
	}
}
