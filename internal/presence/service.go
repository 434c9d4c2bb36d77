package presence

import (
	"context"
	"time"
)

// Store persists the singleton pharmacist heartbeat.
type Store interface {
	SetHeartbeat(ctx context.Context, at time.Time) error
	LastHeartbeat(ctx context.Context) (at time.Time, ok bool, err error)
	Clear(ctx context.Context) error
}

// Snapshot is the derived presence view served to clients.
type Snapshot struct {
	Online               bool      `json:"online"`
	LastSeen             time.Time `json:"last_seen,omitempty"`
	ActiveCalls          int       `json:"active_calls"`
	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
}

// Service publishes console heartbeats and derives the online/wait estimate.
//
// ActiveCount is injected so this package does not depend on the queue
// package; routes wire it as a closure over the call record store.
type Service struct {
	store       Store
	window      time.Duration
	minsPerCall int

	ActiveCount func(ctx context.Context) (int, error)

	clock func() time.Time
}

func NewService(store Store, window time.Duration, minsPerCall int) *Service {
	return &Service{
		store:       store,
		window:      window,
		minsPerCall: minsPerCall,
		clock:       time.Now,
	}
}

// Heartbeat upserts the singleton timestamp.
func (s *Service) Heartbeat(ctx context.Context) error {
	return s.store.SetHeartbeat(ctx, s.clock().UTC())
}

// Read derives presence: online iff the last heartbeat is within the window.
// The wait estimate assumes a fixed per-call service time and excludes the
// call currently being served.
func (s *Service) Read(ctx context.Context) (Snapshot, error) {
	out := Snapshot{}

	last, ok, err := s.store.LastHeartbeat(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		out.LastSeen = last
		out.Online = s.clock().UTC().Sub(last) < s.window
	}

	if s.ActiveCount != nil {
		n, err := s.ActiveCount(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		out.ActiveCalls = n
		if wait := (n - 1) * s.minsPerCall; wait > 0 {
			out.EstimatedWaitMinutes = wait
		}
	}
	return out, nil
}
