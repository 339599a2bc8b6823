package replicator

// The sync engine performs the actual document transfer and protocol
// handling. The controller is deliberately ignorant of everything beyond
// this interface: it creates sessions, asks them to stop, frees them, and
// reacts to the two callbacks.

// Mode is the engine-facing replication mode for one direction
type Mode int

const (
	// ModeDisabled turns the direction off
	ModeDisabled Mode = iota
	// ModeOneShot replicates until caught up, then stops
	ModeOneShot
	// ModeContinuous replicates until stopped, re-arming after idle
	ModeContinuous
)

// EngineStatus is the engine's view of a session, mirrored by the controller
type EngineStatus struct {
	Level    ActivityLevel
	Progress Progress
	Err      error
}

// EngineCallbacks are invoked by the engine asynchronously, on arbitrary
// goroutines. Implementations must not block the calling goroutine.
type EngineCallbacks struct {
	// StatusChanged reports every session status transition, including the
	// final Stopped (with the terminating error, if any).
	StatusChanged func(status EngineStatus)

	// DocumentError reports a per-document transfer failure. Transient
	// document errors may be retried internally by the engine; conflicts
	// arrive as pull errors with transient=false.
	DocumentError func(direction Direction, docID string, err error, transient bool)
}

// EngineSession is one live engine instance
type EngineSession interface {
	// Stop requests asynchronous shutdown; completion is observed via a
	// StatusChanged callback reporting ActivityStopped.
	Stop()

	// Free releases the session's resources. No callbacks are invoked after
	// Free returns.
	Free()

	// Status returns the engine's current view of the session
	Status() EngineStatus
}

// Engine creates replication sessions
type Engine interface {
	CreateSession(
		local Database,
		target Endpoint,
		push, pull Mode,
		options map[string]any,
		callbacks EngineCallbacks,
	) (EngineSession, error)
}
