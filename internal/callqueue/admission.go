package callqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GrantMinter issues a short-lived voice grant for a routing identity.
// Implemented by the telephony bridge; nil when telephony is not configured.
type GrantMinter interface {
	Mint(identity string) (token string, err error)
}

// AdmissionService is the entry point a user calls to request a pharmacist.
// It enforces one active record per user, computes the queue position, and
// returns either a live telephony token (position 1) or a queued
// acknowledgment.
type AdmissionService struct {
	store      Store
	rebalancer *Rebalancer
	grants     GrantMinter

	// pharmacistIdentity is the default staff routing identity returned to
	// clients that get a live token.
	pharmacistIdentity string

	clock func() time.Time
}

func NewAdmissionService(store Store, rebalancer *Rebalancer, grants GrantMinter, pharmacistIdentity string) *AdmissionService {
	return &AdmissionService{
		store:              store,
		rebalancer:         rebalancer,
		grants:             grants,
		pharmacistIdentity: pharmacistIdentity,
		clock:              time.Now,
	}
}

// AdmitResult is the admission outcome handed back to the client.
type AdmitResult struct {
	Queued   bool   `json:"queued"`
	Degraded bool   `json:"degraded,omitempty"`
	Message  string `json:"message,omitempty"`

	RequestID     string `json:"request_id,omitempty"`
	QueuePosition int    `json:"queue_position,omitempty"`

	// Token fields are populated only when the caller gets a live line.
	Token              string `json:"token,omitempty"`
	Identity           string `json:"identity,omitempty"`
	DisplayName        string `json:"display_name,omitempty"`
	PharmacistIdentity string `json:"pharmacist_identity,omitempty"`
}

// Admit places the caller into the queue, or re-attaches to an existing
// active record for the same user. When the store itself is unavailable the
// queue is bypassed and a direct token is issued: availability of a live line
// wins over strict fairness when the queue backend is down.
func (s *AdmissionService) Admit(ctx context.Context, caller Caller, h Handoff) (AdmitResult, error) {
	if caller.UID == "" || caller.Identity == "" {
		return AdmitResult{}, errInvalidf("caller uid and identity required")
	}
	if err := h.Validate(); err != nil {
		return AdmitResult{}, err
	}

	// Rebalance first so the position we compute is against a consistent view.
	if err := s.rebalancer.Rebalance(ctx); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return s.admitDegraded(caller, err)
		}
		return AdmitResult{}, err
	}

	active, err := s.store.ListActive(ctx)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return s.admitDegraded(caller, err)
		}
		return AdmitResult{}, err
	}

	cr, found := findByUser(active, caller.UID)
	if !found {
		created, err := s.createRecord(ctx, caller, h, len(active)+1)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return s.admitDegraded(caller, err)
			}
			return AdmitResult{}, err
		}
		cr = created
	}

	pos := 0
	if cr.QueuePosition != nil {
		pos = *cr.QueuePosition
	}
	if pos == 1 {
		return s.liveResult(caller, cr)
	}
	return AdmitResult{
		Queued:        true,
		RequestID:     cr.ID,
		QueuePosition: pos,
		Message:       fmt.Sprintf("position %d in queue", pos),
	}, nil
}

// createRecord writes a new call request and rebalances again. Two admissions
// racing can both land at apparent position 1; the second rebalance resolves
// order authoritatively by creation time.
func (s *AdmissionService) createRecord(ctx context.Context, caller Caller, h Handoff, apparentPos int) (CallRequest, error) {
	now := s.clock().UTC()
	status := StatusQueued
	if apparentPos == 1 {
		status = StatusRequested
	}
	pos := apparentPos
	cr := CallRequest{
		ID:              uuid.NewString(),
		UserID:          caller.UID,
		CallerName:      caller.Name,
		CallerFirstName: caller.FirstName,
		CallerLastName:  caller.LastName,
		UserEmail:       caller.Email,
		Identity:        caller.Identity,
		Handoff:         h,
		Status:          status,
		QueuePosition:   &pos,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, cr); err != nil {
		return CallRequest{}, err
	}
	if err := s.rebalancer.Rebalance(ctx); err != nil {
		return CallRequest{}, err
	}
	return s.store.Get(ctx, cr.ID)
}

func (s *AdmissionService) liveResult(caller Caller, cr CallRequest) (AdmitResult, error) {
	if s.grants == nil {
		return AdmitResult{}, fmt.Errorf("%w: telephony not configured", ErrUnavailable)
	}
	token, err := s.grants.Mint(caller.Identity)
	if err != nil {
		return AdmitResult{}, fmt.Errorf("mint grant: %w", err)
	}
	return AdmitResult{
		Queued:             false,
		RequestID:          cr.ID,
		QueuePosition:      1,
		Token:              token,
		Identity:           caller.Identity,
		DisplayName:        caller.Name,
		PharmacistIdentity: s.pharmacistIdentity,
	}, nil
}

// admitDegraded bypasses queue bookkeeping entirely when the store reports
// Unavailable. Fails closed when telephony is also unconfigured.
func (s *AdmissionService) admitDegraded(caller Caller, cause error) (AdmitResult, error) {
	if s.grants == nil {
		return AdmitResult{}, fmt.Errorf("%w: queue store down and telephony not configured", ErrUnavailable)
	}
	token, err := s.grants.Mint(caller.Identity)
	if err != nil {
		return AdmitResult{}, fmt.Errorf("mint grant (degraded, cause %v): %w", cause, err)
	}
	return AdmitResult{
		Queued:             false,
		Degraded:           true,
		Message:            "queue unavailable, connecting directly",
		Token:              token,
		Identity:           caller.Identity,
		DisplayName:        caller.Name,
		PharmacistIdentity: s.pharmacistIdentity,
	}, nil
}

func findByUser(active []CallRequest, uid string) (CallRequest, bool) {
	for _, cr := range active {
		if cr.UserID == uid {
			return cr, true
		}
	}
	return CallRequest{}, false
}
