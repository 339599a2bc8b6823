package replicator

import "sync"

// Document is a minimal document snapshot handed to conflict resolvers
type Document struct {
	ID      string         `json:"id"`
	RevID   string         `json:"rev_id"`
	Deleted bool           `json:"deleted"`
	Body    map[string]any `json:"body,omitempty"`
}

// Conflict describes a pulled revision whose history conflicts with a
// locally existing revision. Either snapshot may be nil when that side is a
// deletion.
type Conflict struct {
	DocID  string
	Local  *Document
	Remote *Document
}

// ConflictResolver decides the winning revision for a pull conflict.
// Returning nil selects deletion; returning an error fails the resolution
// (logged by the controller, never propagated as a session error).
type ConflictResolver interface {
	Resolve(conflict *Conflict) (*Document, error)
}

// ConflictResolverFunc adapts a function to the ConflictResolver interface
type ConflictResolverFunc func(conflict *Conflict) (*Document, error)

// Resolve implements ConflictResolver
func (f ConflictResolverFunc) Resolve(conflict *Conflict) (*Document, error) {
	return f(conflict)
}

// Database is the local-database collaborator. The controller registers
// itself in the database's active-session set while a session is live and
// routes pull conflicts to the database's resolution primitive.
type Database interface {
	// Name returns the database name
	Name() string

	// ResolveConflict resolves the current conflict on the document using
	// the given resolver.
	ResolveConflict(docID string, resolver ConflictResolver) error

	// AddActiveReplicator registers a replicator with a live session
	AddActiveReplicator(r *Replicator)

	// RemoveActiveReplicator removes a replicator whose session reached
	// terminal Stopped. Removing an unregistered replicator is a no-op.
	RemoveActiveReplicator(r *Replicator)
}

// ActiveReplicatorSet is an explicit set of replicators with live sessions,
// intended for embedding in Database implementations. Add/remove calls are
// issued by the controller at session-create success and terminal Stopped.
type ActiveReplicatorSet struct {
	mu   sync.Mutex
	set  map[*Replicator]struct{}
	once sync.Once
}

func (s *ActiveReplicatorSet) init() {
	s.once.Do(func() {
		s.set = make(map[*Replicator]struct{})
	})
}

// AddActiveReplicator adds a replicator to the set
func (s *ActiveReplicatorSet) AddActiveReplicator(r *Replicator) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[r] = struct{}{}
}

// RemoveActiveReplicator removes a replicator from the set
func (s *ActiveReplicatorSet) RemoveActiveReplicator(r *Replicator) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.set, r)
}

// ActiveReplicatorCount returns the number of replicators with live sessions
func (s *ActiveReplicatorSet) ActiveReplicatorCount() int {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set)
}
