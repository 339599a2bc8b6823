package replicator

import (
	"sync"
)

// fakeSession is a controllable engine session for tests
type fakeSession struct {
	callbacks EngineCallbacks

	mu        sync.Mutex
	status    EngineStatus
	stopCalls int
	freeCalls int

	// onStop runs when Stop is called; the default reports a clean Stopped
	// status through the callbacks, like a real engine would.
	onStop func(s *fakeSession)
}

func (s *fakeSession) Stop() {
	s.mu.Lock()
	s.stopCalls++
	onStop := s.onStop
	s.mu.Unlock()

	if onStop != nil {
		onStop(s)
	}
}

func (s *fakeSession) Free() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeCalls++
}

func (s *fakeSession) Status() EngineStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// report drives the session's status callback, as the engine would from its
// own goroutine
func (s *fakeSession) report(level ActivityLevel, progress Progress, err error) {
	status := EngineStatus{Level: level, Progress: progress, Err: err}
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.callbacks.StatusChanged(status)
}

// reportDocError drives the session's document-error callback
func (s *fakeSession) reportDocError(direction Direction, docID string, err error, transient bool) {
	s.callbacks.DocumentError(direction, docID, err, transient)
}

// fakeEngine creates fakeSessions and can be told to fail creations
type fakeEngine struct {
	mu          sync.Mutex
	sessions    []*fakeSession
	createErrs  []error
	creates     int
	lastOptions map[string]any
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{}
}

// failNextCreates queues errors returned by the next CreateSession calls,
// in order. A nil entry means that creation succeeds.
func (e *fakeEngine) failNextCreates(errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.createErrs = append(e.createErrs, errs...)
}

func (e *fakeEngine) CreateSession(
	local Database,
	target Endpoint,
	push, pull Mode,
	options map[string]any,
	callbacks EngineCallbacks,
) (EngineSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.creates++
	e.lastOptions = options
	if len(e.createErrs) > 0 {
		err := e.createErrs[0]
		e.createErrs = e.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	s := &fakeSession{
		callbacks: callbacks,
		onStop: func(s *fakeSession) {
			s.report(ActivityStopped, Progress{}, nil)
		},
	}
	e.sessions = append(e.sessions, s)
	return s, nil
}

func (e *fakeEngine) createCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.creates
}

func (e *fakeEngine) lastSessionOptions() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOptions
}

func (e *fakeEngine) lastSession() *fakeSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}

// fakeMonitor is a deterministically driveable NetworkMonitor
type fakeMonitor struct {
	mu       sync.Mutex
	onChange func(reachable bool)
	starts   int
	stops    int
}

func (m *fakeMonitor) Start(onChange func(reachable bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	m.onChange = onChange
	return nil
}

func (m *fakeMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onChange != nil {
		m.stops++
		m.onChange = nil
	}
}

// signal reports a reachability transition, as the monitor would from its
// own goroutine
func (m *fakeMonitor) signal(reachable bool) {
	m.mu.Lock()
	cb := m.onChange
	m.mu.Unlock()
	if cb != nil {
		cb(reachable)
	}
}

func (m *fakeMonitor) startCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

func (m *fakeMonitor) stopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// fakeDatabase is a local-database collaborator that records conflict
// resolutions
type fakeDatabase struct {
	ActiveReplicatorSet
	name string

	mu         sync.Mutex
	resolved   []string
	resolveErr error
}

func (d *fakeDatabase) Name() string {
	return d.name
}

func (d *fakeDatabase) ResolveConflict(docID string, resolver ConflictResolver) error {
	d.mu.Lock()
	d.resolved = append(d.resolved, docID)
	err := d.resolveErr
	d.mu.Unlock()

	if resolver != nil {
		if _, resolveErr := resolver.Resolve(&Conflict{DocID: docID}); resolveErr != nil {
			return resolveErr
		}
	}
	return err
}

func (d *fakeDatabase) resolvedDocs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.resolved))
	copy(out, d.resolved)
	return out
}

// barrier waits until every command admitted before it has run
func barrier(r *Replicator) {
	r.queue.Sync(func() {})
}

// fireRetryTimer simulates an armed retry timer firing without waiting out
// the real backoff delay
func fireRetryTimer(r *Replicator) {
	r.queue.Sync(func() {
		r.retryCmd(r.retryGen, "timer")
	})
}
