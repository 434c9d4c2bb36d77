package callqueue

import (
	"context"
	"time"
)

// Store is the persistence contract for call requests.
//
// Requirements on implementations:
// - ListActive returns active records ordered by CreatedAt ascending, with
//   insertion order breaking timestamp ties.
// - BatchUpdate applies all updates or none; a reader must never observe a
//   half-renumbered queue.
// - Quota or outage conditions surface as ErrUnavailable, never as a generic
//   error, so that admission can take the degraded path.
type Store interface {
	Create(ctx context.Context, cr CallRequest) error
	Get(ctx context.Context, id string) (CallRequest, error)
	UpdateFields(ctx context.Context, id string, f Fields) error
	ListActive(ctx context.Context) ([]CallRequest, error)
	BatchUpdate(ctx context.Context, updates []FieldUpdate) error
	ListRecent(ctx context.Context, limit int) ([]CallRequest, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// Fields is a typed partial update. Nil pointers leave the column untouched;
// ClearPosition nulls the queue position (used on terminal transitions).
// UpdatedAt is stamped by the store, not the caller.
type Fields struct {
	Status        *Status
	Position      *int
	ClearPosition bool
	StartedAt     *time.Time
	EndedAt       *time.Time
}

// IsZero reports whether the update would touch nothing.
func (f Fields) IsZero() bool {
	return f.Status == nil && f.Position == nil && !f.ClearPosition &&
		f.StartedAt == nil && f.EndedAt == nil
}

// FieldUpdate pairs a record id with its partial update for BatchUpdate.
type FieldUpdate struct {
	ID     string
	Fields Fields
}
