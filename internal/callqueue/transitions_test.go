package callqueue

import (
	"errors"
	"testing"
)

func TestCanTransition_TerminalStatesAbsorb(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusFailed, StatusCancelled, StatusMissed} {
		for _, to := range []Status{StatusRinging, StatusInProgress, StatusCompleted, StatusCancelled} {
			if err := CanTransition(from, to, RoleConsole); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected %s -> %s rejected, got %v", from, to, err)
			}
		}
	}
}

func TestCanTransition_HappyPath(t *testing.T) {
	steps := []struct {
		from, to Status
		role     Role
	}{
		{StatusQueued, StatusRequested, RoleConsole},
		{StatusRequested, StatusRinging, RoleBridge},
		{StatusRinging, StatusInProgress, RoleUser},
		{StatusInProgress, StatusCompleted, RoleUser},
	}
	for _, s := range steps {
		if err := CanTransition(s.from, s.to, s.role); err != nil {
			t.Fatalf("expected %s -> %s allowed for %s, got %v", s.from, s.to, s.role, err)
		}
	}
}

func TestCanTransition_EarlyHangupPaths(t *testing.T) {
	for _, from := range []Status{StatusQueued, StatusRequested, StatusRinging} {
		if err := CanTransition(from, StatusCancelled, RoleUser); err != nil {
			t.Fatalf("expected %s -> cancelled allowed for user, got %v", from, err)
		}
		if err := CanTransition(from, StatusMissed, RoleConsole); err != nil {
			t.Fatalf("expected %s -> missed allowed for console, got %v", from, err)
		}
	}
}

func TestCanTransition_RejectsUnknownInput(t *testing.T) {
	if err := CanTransition(StatusQueued, Status("sideways"), RoleConsole); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected unknown status rejected, got %v", err)
	}
	if err := CanTransition(StatusQueued, StatusRinging, Role("intruder")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected unknown role rejected, got %v", err)
	}
}

func TestCanTransition_InProgressOnlyEnds(t *testing.T) {
	for _, to := range []Status{StatusRinging, StatusCancelled, StatusMissed} {
		if err := CanTransition(StatusInProgress, to, RoleConsole); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected in_progress -> %s rejected, got %v", to, err)
		}
	}
	for _, to := range []Status{StatusCompleted, StatusFailed} {
		if err := CanTransition(StatusInProgress, to, RoleConsole); err != nil {
			t.Fatalf("expected in_progress -> %s allowed, got %v", to, err)
		}
	}
}
