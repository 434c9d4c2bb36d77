package callqueue

import "context"

// computeRebalance is the pure half of the rebalancer: given the active set
// in creation order, it returns the minimal set of writes that renumbers
// positions 1..N and promotes the head from queued to requested.
//
// It is convergent: applied to its own output it produces no further writes,
// which is what makes the rebalancer safe to call after every admission and
// status change without coordination.
func computeRebalance(active []CallRequest) []FieldUpdate {
	var out []FieldUpdate
	for i, cr := range active {
		pos := i + 1
		var f Fields
		if cr.QueuePosition == nil || *cr.QueuePosition != pos {
			p := pos
			f.Position = &p
		}
		if i == 0 && cr.Status == StatusQueued {
			s := StatusRequested
			f.Status = &s
		}
		if !f.IsZero() {
			out = append(out, FieldUpdate{ID: cr.ID, Fields: f})
		}
	}
	return out
}

// Rebalancer recomputes queue positions over a snapshot of the active set and
// applies the changes in one atomic batch.
type Rebalancer struct {
	store Store
}

func NewRebalancer(store Store) *Rebalancer {
	return &Rebalancer{store: store}
}

// Rebalance reads the active set, renumbers it, and writes only what changed.
// Calling it twice in a row with no intervening writes performs zero writes
// the second time.
func (r *Rebalancer) Rebalance(ctx context.Context) error {
	active, err := r.store.ListActive(ctx)
	if err != nil {
		return err
	}
	updates := computeRebalance(active)
	if len(updates) == 0 {
		return nil
	}
	return r.store.BatchUpdate(ctx, updates)
}
