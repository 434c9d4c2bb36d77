package callqueue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeMinter struct {
	minted []string
	fail   error
}

func (f *fakeMinter) Mint(identity string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.minted = append(f.minted, identity)
	return "tok-" + identity, nil
}

// steppingClock hands out strictly increasing timestamps so admissions get
// distinct CreatedAt values.
func steppingClock() func() time.Time {
	t := time.Unix(1700000000, 0).UTC()
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newAdmission(store *MemoryStore, minter GrantMinter) *AdmissionService {
	svc := NewAdmissionService(store, NewRebalancer(store), minter, "pharmacist")
	svc.clock = steppingClock()
	return svc
}

func caller(uid string) Caller {
	return Caller{UID: uid, Identity: "user_" + uid, Name: "Caller " + uid}
}

func TestAdmit_ThreeCallersInOrder(t *testing.T) {
	store := NewMemoryStore()
	minter := &fakeMinter{}
	svc := newAdmission(store, minter)
	ctx := context.Background()

	resA, err := svc.Admit(ctx, caller("a"), Handoff{})
	if err != nil {
		t.Fatalf("admit a: %v", err)
	}
	if resA.Queued || resA.QueuePosition != 1 || resA.Token == "" {
		t.Fatalf("expected a live at position 1 with token, got %+v", resA)
	}
	if resA.PharmacistIdentity != "pharmacist" {
		t.Fatalf("expected pharmacist routing identity, got %q", resA.PharmacistIdentity)
	}

	resB, err := svc.Admit(ctx, caller("b"), Handoff{})
	if err != nil {
		t.Fatalf("admit b: %v", err)
	}
	if !resB.Queued || resB.QueuePosition != 2 || resB.Token != "" {
		t.Fatalf("expected b queued at 2 without token, got %+v", resB)
	}
	if !strings.Contains(resB.Message, "position 2") {
		t.Fatalf("expected queue message, got %q", resB.Message)
	}

	resC, err := svc.Admit(ctx, caller("c"), Handoff{})
	if err != nil {
		t.Fatalf("admit c: %v", err)
	}
	if !resC.Queued || resC.QueuePosition != 3 {
		t.Fatalf("expected c queued at 3, got %+v", resC)
	}

	// A completes; B is promoted to the head.
	rec := NewReconciler(store, NewRebalancer(store))
	if _, err := rec.Apply(ctx, resA.RequestID, StatusCompleted, Actor{Role: RoleConsole}); err != nil {
		t.Fatalf("complete a: %v", err)
	}
	b, err := store.Get(ctx, resB.RequestID)
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	if b.Status != StatusRequested || b.QueuePosition == nil || *b.QueuePosition != 1 {
		t.Fatalf("expected b requested at position 1, got %+v", b)
	}
}

func TestAdmit_ReadmissionReusesActiveRecord(t *testing.T) {
	store := NewMemoryStore()
	svc := newAdmission(store, &fakeMinter{})
	ctx := context.Background()

	first, err := svc.Admit(ctx, caller("a"), Handoff{UserMessage: "help"})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	second, err := svc.Admit(ctx, caller("a"), Handoff{})
	if err != nil {
		t.Fatalf("re-admit: %v", err)
	}
	if second.RequestID != first.RequestID {
		t.Fatalf("expected same request id, got %q and %q", first.RequestID, second.RequestID)
	}
	all, _ := store.ListRecent(ctx, 0)
	if len(all) != 1 {
		t.Fatalf("expected a single record, got %d", len(all))
	}
}

func TestAdmit_DegradedBypassWhenStoreUnavailable(t *testing.T) {
	store := NewMemoryStore()
	store.FailWith = ErrUnavailable
	minter := &fakeMinter{}
	svc := newAdmission(store, minter)

	res, err := svc.Admit(context.Background(), caller("a"), Handoff{})
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if !res.Degraded || res.Queued || res.Token == "" {
		t.Fatalf("expected degraded direct token, got %+v", res)
	}
	if res.RequestID != "" {
		t.Fatalf("degraded mode must not create queue records, got request id %q", res.RequestID)
	}
}

func TestAdmit_FailsClosedWhenStoreDownAndTelephonyUnconfigured(t *testing.T) {
	store := NewMemoryStore()
	store.FailWith = ErrUnavailable
	svc := newAdmission(store, nil)

	_, err := svc.Admit(context.Background(), caller("a"), Handoff{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAdmit_PositionOneWithoutTelephonyIsUnavailable(t *testing.T) {
	store := NewMemoryStore()
	svc := newAdmission(store, nil)

	_, err := svc.Admit(context.Background(), caller("a"), Handoff{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAdmit_RejectsOversizedHandoff(t *testing.T) {
	store := NewMemoryStore()
	svc := newAdmission(store, &fakeMinter{})

	long := strings.Repeat("x", MaxUserMessageLen+1)
	_, err := svc.Admit(context.Background(), caller("a"), Handoff{UserMessage: long})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	long = strings.Repeat("x", MaxSummarizedLogsLen+1)
	_, err = svc.Admit(context.Background(), caller("a"), Handoff{SummarizedLogs: long})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAdmit_ConcurrentBurstYieldsDensePositions(t *testing.T) {
	store := NewMemoryStore()
	svc := newAdmission(store, &fakeMinter{})
	ctx := context.Background()

	for _, uid := range []string{"a", "b", "c", "d", "e"} {
		if _, err := svc.Admit(ctx, caller(uid), Handoff{}); err != nil {
			t.Fatalf("admit %s: %v", uid, err)
		}
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 5 {
		t.Fatalf("expected 5 active, got %d", len(active))
	}
	for i, cr := range active {
		if cr.QueuePosition == nil || *cr.QueuePosition != i+1 {
			t.Fatalf("expected dense positions 1..5, record %d has %v", i, cr.QueuePosition)
		}
	}
}
