package callqueue

import (
	"context"
	"time"
)

// Reconciler applies status transitions reported by either side of the call
// (user client, staff console, telephony bridge) and keeps the queue
// consistent afterwards.
type Reconciler struct {
	store      Store
	rebalancer *Rebalancer
	clock      func() time.Time
}

func NewReconciler(store Store, rebalancer *Rebalancer) *Reconciler {
	return &Reconciler{store: store, rebalancer: rebalancer, clock: time.Now}
}

// Apply validates the transition for the actor, writes the status change with
// its timestamp side effects, and rebalances the queue. On success it returns
// the record as stored after the rebalance.
//
// Side effects by target:
// - in_progress: StartedAt stamped if unset, position forced to 1.
// - any terminal status: EndedAt stamped, position cleared.
func (r *Reconciler) Apply(ctx context.Context, id string, target Status, actor Actor) (CallRequest, error) {
	cr, err := r.store.Get(ctx, id)
	if err != nil {
		return CallRequest{}, err
	}

	if actor.Role == RoleUser && cr.UserID != actor.UserID {
		return CallRequest{}, ErrPermissionDenied
	}
	if err := CanTransition(cr.Status, target, actor.Role); err != nil {
		return CallRequest{}, err
	}

	now := r.clock().UTC()
	f := Fields{Status: &target}
	switch {
	case target == StatusInProgress:
		if cr.StartedAt == nil {
			f.StartedAt = &now
		}
		pos := 1
		f.Position = &pos
	case target.Terminal():
		f.EndedAt = &now
		f.ClearPosition = true
	}

	if err := r.store.UpdateFields(ctx, id, f); err != nil {
		return CallRequest{}, err
	}
	if err := r.rebalancer.Rebalance(ctx); err != nil {
		return CallRequest{}, err
	}
	return r.store.Get(ctx, id)
}

// Get returns a record snapshot, enforcing ownership for user actors.
func (r *Reconciler) Get(ctx context.Context, id string, actor Actor) (CallRequest, error) {
	cr, err := r.store.Get(ctx, id)
	if err != nil {
		return CallRequest{}, err
	}
	if actor.Role == RoleUser && cr.UserID != actor.UserID {
		return CallRequest{}, ErrPermissionDenied
	}
	return cr, nil
}
