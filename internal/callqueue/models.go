package callqueue

import (
	"errors"
	"fmt"
	"time"
)

// CallRequest is one admitted attempt to reach the pharmacist line.
//
// Queue invariants:
// - At most one active record per UserID.
// - Active records are totally ordered by CreatedAt ascending (arrival order
//   breaks ties); QueuePosition is that rank, starting at 1.
// - The rank-1 record is the one being connected; it is never left in
//   StatusQueued after a rebalance.
//
// QueuePosition, StartedAt and EndedAt are pointers because they are absent
// for part of the lifecycle: position is nil once the record is terminal.

type CallRequest struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	CallerName      string `json:"caller_name,omitempty" db:"caller_name"`
	CallerFirstName string `json:"caller_first_name,omitempty" db:"caller_first_name"`
	CallerLastName  string `json:"caller_last_name,omitempty" db:"caller_last_name"`
	UserEmail       string `json:"user_email,omitempty" db:"user_email"`

	// Identity is the telephony-layer address the caller is dialed back at.
	Identity string `json:"identity" db:"identity"`

	Handoff Handoff `json:"handoff"`

	Status        Status `json:"status" db:"status"`
	QueuePosition *int   `json:"queue_position" db:"queue_position"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// Handoff carries the context a pharmacist sees when picking up the call.
// Immutable once the record is created.
type Handoff struct {
	UserMessage    string `json:"user_message,omitempty" db:"user_message"`
	SummarizedLogs string `json:"summarized_logs,omitempty" db:"summarized_logs"`

	// LogRange is an opaque marker into the caller's chat history.
	LogRange string `json:"log_range,omitempty" db:"log_range"`
}

const (
	MaxUserMessageLen    = 500
	MaxSummarizedLogsLen = 4000
)

// Validate enforces the handoff size bounds at admission time.
func (h Handoff) Validate() error {
	if len(h.UserMessage) > MaxUserMessageLen {
		return errInvalidf("user_message exceeds %d characters", MaxUserMessageLen)
	}
	if len(h.SummarizedLogs) > MaxSummarizedLogsLen {
		return errInvalidf("summarized_logs exceeds %d characters", MaxSummarizedLogsLen)
	}
	return nil
}

// Caller is the resolved identity admitting a call. It mirrors what the
// identity resolver produces; the queue core does not depend on how the
// credential was verified.
type Caller struct {
	UID       string
	Identity  string
	Name      string
	FirstName string
	LastName  string
	Email     string
}

type Status string

const (
	StatusRequested  Status = "requested"
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusMissed     Status = "missed"
)

// Terminal reports whether s ends queue participation.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusMissed:
		return true
	}
	return false
}

// Active reports whether a record with this status still occupies a queue slot.
func (s Status) Active() bool {
	switch s {
	case StatusRequested, StatusQueued, StatusRinging, StatusInProgress:
		return true
	}
	return false
}

func (s Status) Valid() bool { return s.Terminal() || s.Active() }

// ActiveStatuses returns the statuses that count toward the queue, in no
// particular order.
func ActiveStatuses() []Status {
	return []Status{StatusRequested, StatusQueued, StatusRinging, StatusInProgress}
}

// Sentinel errors for the queue core. The HTTP layer maps these to status
// codes; nothing below the HTTP layer knows about status codes.
var (
	ErrNotFound         = errors.New("callqueue: not found")
	ErrPermissionDenied = errors.New("callqueue: permission denied")
	ErrInvalidArgument  = errors.New("callqueue: invalid argument")

	// ErrUnavailable means the backing store is over quota or down. It is a
	// retry-later condition, and admission treats it as a trigger for the
	// direct-connect bypass.
	ErrUnavailable = errors.New("callqueue: store unavailable")
)

func errInvalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

