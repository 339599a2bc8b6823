package replicator

import (
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-sync/pkg/logging"
)

// ListenerToken identifies a registered change listener
type ListenerToken string

// ChangeListener receives status snapshots published by the replicator
type ChangeListener func(status Status)

// Executor runs a listener invocation on a caller-chosen execution context
// (e.g. a UI loop). A nil executor invokes the listener inline on the
// queue worker.
type Executor func(task func())

// listenerEntry pairs a token with its callback and execution context
type listenerEntry struct {
	token    ListenerToken
	listener ChangeListener
	executor Executor
}

// changeNotifier is the listener registry. It is confined to the command
// queue: every mutation and publication happens inside a queue command, so
// no locking is needed. Listeners are invoked in registration order.
//
// Adapted from the snapshot-copy publish discipline of the pubsub package:
// the entry slice is copied before invocation so a listener that removes
// itself (or another) mid-publication cannot corrupt iteration.
type changeNotifier struct {
	entries []listenerEntry
	logger  logging.Logger
}

func newChangeNotifier(logger logging.Logger) *changeNotifier {
	return &changeNotifier{logger: logger}
}

// Add registers a listener and returns its removal token
func (n *changeNotifier) Add(listener ChangeListener, executor Executor) ListenerToken {
	token := ListenerToken(uuid.NewString())
	n.entries = append(n.entries, listenerEntry{
		token:    token,
		listener: listener,
		executor: executor,
	})
	return token
}

// Remove deletes the listener with the given token. Unknown tokens are a
// no-op.
func (n *changeNotifier) Remove(token ListenerToken) {
	for i, e := range n.entries {
		if e.token == token {
			n.entries = append(n.entries[:i], n.entries[i+1:]...)
			return
		}
	}
}

// Publish delivers a status snapshot to every listener, in registration
// order. Listener panics are recovered and logged; they never interrupt
// delivery to the remaining listeners.
func (n *changeNotifier) Publish(status Status) {
	snapshot := make([]listenerEntry, len(n.entries))
	copy(snapshot, n.entries)

	for _, e := range snapshot {
		n.invoke(e, status)
	}
}

func (n *changeNotifier) invoke(e listenerEntry, status Status) {
	call := func() {
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("change listener panicked",
					logging.Any("panic", r),
					logging.State(status.Level.String()))
			}
		}()
		e.listener(status)
	}

	if e.executor != nil {
		e.executor(call)
		return
	}
	call()
}

// Clear removes every listener
func (n *changeNotifier) Clear() {
	n.entries = nil
}

// Len returns the number of registered listeners
func (n *changeNotifier) Len() int {
	return len(n.entries)
}
