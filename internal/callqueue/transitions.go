package callqueue

// Role identifies who is asking for a status transition. The whitelist of
// reachable statuses differs per role; the transition table below is the
// single source of truth for both the whitelist and the state machine edges.
type Role string

const (
	// RoleUser is the requesting caller. Must own the record.
	RoleUser Role = "user"
	// RoleConsole is the staff console. May act on any record.
	RoleConsole Role = "console"
	// RoleBridge is the telephony leg reporting outcomes system-to-system.
	RoleBridge Role = "bridge"
)

// Actor is the authenticated party applying a transition.
type Actor struct {
	Role   Role
	UserID string // required for RoleUser
}

// allowedNext maps each active status to the statuses a call may move to.
// Terminal statuses are intentionally absent: once terminal, every further
// transition attempt is rejected (see Apply).
//
// The edges are deliberately permissive about skipping intermediate states:
// the caller and the callee legs can disagree about when a call ended, and
// either side may report the terminal outcome first.
var allowedNext = map[Status]map[Status]bool{
	StatusQueued: {
		StatusRequested:  true,
		StatusRinging:    true,
		StatusInProgress: true,
		StatusCancelled:  true,
		StatusMissed:     true,
		StatusFailed:     true,
	},
	StatusRequested: {
		StatusRinging:    true,
		StatusInProgress: true,
		StatusCancelled:  true,
		StatusMissed:     true,
		StatusFailed:     true,
	},
	StatusRinging: {
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusCancelled:  true,
		StatusMissed:     true,
	},
	StatusInProgress: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// roleTargets is the per-role whitelist of requestable statuses.
// Users and the bridge may never put a record back into queue bookkeeping
// states; only the rebalancer assigns those.
var roleTargets = map[Role]map[Status]bool{
	RoleUser: {
		StatusRinging:    true,
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusCancelled:  true,
		StatusMissed:     true,
	},
	RoleBridge: {
		StatusRinging:    true,
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusMissed:     true,
	},
	RoleConsole: {
		StatusRequested:  true,
		StatusRinging:    true,
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusCancelled:  true,
		StatusMissed:     true,
	},
}

// CanTransition validates a requested transition against the table.
// Returns ErrInvalidArgument when the target is outside the role's whitelist,
// when the record is already terminal, or when the edge does not exist.
func CanTransition(from, to Status, role Role) error {
	if !to.Valid() {
		return errInvalidf("unknown status %q", to)
	}
	targets, ok := roleTargets[role]
	if !ok {
		return errInvalidf("unknown role %q", role)
	}
	if !targets[to] {
		return errInvalidf("status %q not allowed for role %q", to, role)
	}
	if from.Terminal() {
		return errInvalidf("record already terminal (%s)", from)
	}
	if !allowedNext[from][to] {
		return errInvalidf("cannot move from %q to %q", from, to)
	}
	return nil
}
