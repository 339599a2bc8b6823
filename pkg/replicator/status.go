package replicator

import "time"

// ActivityLevel is the coarse progress indicator of a replication session,
// ordered by progress toward actively transferring documents.
type ActivityLevel int

const (
	// ActivityStopped means the replicator is not running (initial and terminal state)
	ActivityStopped ActivityLevel = iota
	// ActivityOffline means the replicator is waiting to retry after a recoverable failure
	ActivityOffline
	// ActivityConnecting means a session is being established with the target
	ActivityConnecting
	// ActivityIdle means the session is connected and caught up
	ActivityIdle
	// ActivityBusy means the session is actively transferring documents
	ActivityBusy
)

// String returns the string representation of an activity level
func (a ActivityLevel) String() string {
	switch a {
	case ActivityStopped:
		return "stopped"
	case ActivityOffline:
		return "offline"
	case ActivityConnecting:
		return "connecting"
	case ActivityIdle:
		return "idle"
	case ActivityBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Progress reports completed and total work units for the current session.
// Units are monotonically non-decreasing within one session and reset when
// a new session is created.
type Progress struct {
	Completed uint64 `json:"completed"`
	Total     uint64 `json:"total"`
}

// Status is an immutable snapshot of replicator activity. A new snapshot
// replaces the previous one atomically on every state transition.
type Status struct {
	Level     ActivityLevel `json:"level"`
	Progress  Progress      `json:"progress"`
	Err       error         `json:"-"`
	Timestamp time.Time     `json:"timestamp"`
}

// Direction identifies which side of the transfer a document event belongs to
type Direction int

const (
	// DirectionPush is local-to-remote transfer
	DirectionPush Direction = iota
	// DirectionPull is remote-to-local transfer
	DirectionPull
)

// String returns the string representation of a direction
func (d Direction) String() string {
	if d == DirectionPush {
		return "push"
	}
	return "pull"
}
