package replicator

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-sync/pkg/logging"
	"github.com/dd0wney/cluso-sync/pkg/metrics"
)

// Replicator coordinates one replication relationship: it owns the engine
// session handle, drives start/stop/retry transitions, and publishes status
// snapshots to listeners.
//
// All mutable state below the queue field is confined to the command queue:
// public API calls, engine callbacks, reachability events, and retry timers
// all funnel through it, so no field-level locking is needed.
type Replicator struct {
	id      string
	config  *ReplicationConfiguration
	engine  Engine
	queue   *commandQueue
	logger  logging.Logger
	metrics *metrics.Registry

	// status holds the latest published Status snapshot; readable from any
	// goroutine.
	status atomic.Value

	// Queue-confined state.
	session      EngineSession
	state        ActivityLevel
	progress     Progress
	attempts     int
	monitor      NetworkMonitor
	monitorArmed bool
	retryGen     uint64
	registered   bool
	disposed     bool
	listeners    *changeNotifier
}

// NewReplicator creates a replicator bound to an immutable copy of the
// configuration. The replicator begins in Stopped with no engine session.
func NewReplicator(cfg *ReplicationConfiguration, engine Engine) (*Replicator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, ErrNoEngine
	}

	id := uuid.NewString()
	logger := logging.DefaultLogger().With(
		logging.Component("replicator"),
		logging.SessionID(id),
		logging.Endpoint(cfg.Target.Describe()),
	)

	r := &Replicator{
		id:        id,
		config:    cfg.clone(),
		engine:    engine,
		queue:     newCommandQueue(),
		logger:    logger,
		metrics:   metrics.DefaultRegistry(),
		state:     ActivityStopped,
		listeners: newChangeNotifier(logger),
	}

	r.monitor = cfg.Monitor
	if r.monitor == nil {
		if url, ok := cfg.Target.(*URLEndpoint); ok {
			r.monitor = NewDialMonitor(url.Address(), 0)
		}
	}

	r.status.Store(Status{Level: ActivityStopped, Timestamp: time.Now()})
	return r, nil
}

// ID returns the replicator's unique identifier
func (r *Replicator) ID() string {
	return r.id
}

// Config returns a deep copy of the replicator's configuration
func (r *Replicator) Config() *ReplicationConfiguration {
	return r.config.clone()
}

// Status returns the latest published status snapshot. A reader polling
// after a synchronous command completes always sees that command's effect.
func (r *Replicator) Status() Status {
	return r.status.Load().(Status)
}

// SetOptions replaces the protocol options used for future sessions. Options
// are frozen while a session exists: calls between session creation and
// terminal Stopped return ErrFrozenConfig.
func (r *Replicator) SetOptions(options map[string]any) error {
	var err error
	ok := r.queue.Sync(func() {
		switch {
		case r.disposed:
			err = ErrDisposed
		case r.session != nil || r.state != ActivityStopped:
			err = ErrFrozenConfig
		default:
			r.config.Options = cloneOptions(options)
		}
	})
	if !ok {
		return ErrDisposed
	}
	return err
}

// Start creates an engine session. Calling Start while a session exists is
// a logged no-op. Returns ErrDisposed after disposal. A session-creation
// failure does not fail Start: it engages the retry machinery and is
// observable through the status stream.
func (r *Replicator) Start() error {
	var err error
	if ok := r.queue.Sync(func() { err = r.startCmd() }); !ok {
		return ErrDisposed
	}
	return err
}

func (r *Replicator) startCmd() error {
	if r.disposed {
		return ErrDisposed
	}
	if r.state != ActivityStopped {
		r.logger.Info("start ignored, replicator already running",
			logging.State(r.state.String()))
		return nil
	}

	r.attempts = 0
	r.createSession("start")
	return nil
}

// Stop requests asynchronous session shutdown; the Stopped transition is
// confirmed by a later engine status callback. With no session, Stop clears
// the reachability observer and cancels any scheduled retry. Returns
// ErrDisposed after disposal.
func (r *Replicator) Stop() error {
	var err error
	if ok := r.queue.Sync(func() { err = r.stopCmd() }); !ok {
		return ErrDisposed
	}
	return err
}

func (r *Replicator) stopCmd() error {
	if r.disposed {
		return ErrDisposed
	}
	if r.session != nil {
		r.logger.Info("stop requested", logging.State(r.state.String()))
		r.session.Stop()
		return nil
	}

	r.disarmMonitor()
	r.retryGen++
	return nil
}

// AddChangeListener registers a status listener, invoked in registration
// order on every published transition. A nil executor invokes the listener
// inline on the replicator's worker.
func (r *Replicator) AddChangeListener(listener ChangeListener, executor Executor) (ListenerToken, error) {
	var (
		token ListenerToken
		err   error
	)
	ok := r.queue.Sync(func() {
		if r.disposed {
			err = ErrDisposed
			return
		}
		token = r.listeners.Add(listener, executor)
	})
	if !ok {
		return "", ErrDisposed
	}
	return token, err
}

// RemoveChangeListener removes the listener with the given token. Unknown
// tokens and calls after disposal are no-ops.
func (r *Replicator) RemoveChangeListener(token ListenerToken) {
	r.queue.Sync(func() {
		r.listeners.Remove(token)
	})
}

// Dispose forces shutdown, releases the engine session, and synthesizes a
// final Stopped status if the replicator was not already stopped. Safe to
// call more than once.
func (r *Replicator) Dispose() {
	r.queue.Sync(func() {
		r.disposeCmd()
	})
	r.queue.Close()
}

func (r *Replicator) disposeCmd() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.retryGen++
	r.disarmMonitor()

	if r.session != nil {
		r.session.Stop()
		r.session.Free()
		r.session = nil
		r.metrics.SessionEnded()
	}
	if r.registered {
		r.config.Database.RemoveActiveReplicator(r)
		r.registered = false
	}

	if r.state != ActivityStopped {
		r.publish(ActivityStopped, r.progress, nil)
	}
	r.listeners.Clear()
	r.logger.Info("replicator disposed")
}

// createSession builds protocol options, applies the authenticator, and
// asks the engine for a new session. Failures are routed through the same
// classification path as an engine-reported stop.
func (r *Replicator) createSession(cause string) {
	opts := map[string]any{}
	if r.config.Options != nil {
		opts = cloneOptions(r.config.Options)
	}
	for k, v := range r.config.Headers {
		opts["headers."+k] = v
	}

	if r.config.Authenticator != nil {
		if err := r.config.Authenticator.Authenticate(opts); err != nil {
			r.logger.Error("authentication failed", logging.Error(err))
			r.handleSessionEnded(NewPermanentError(codeAuthFailed, "authentication failed", err))
			return
		}
	}

	callbacks := EngineCallbacks{
		StatusChanged: func(status EngineStatus) {
			r.queue.Async(func() { r.handleEngineStatus(status) })
		},
		DocumentError: func(direction Direction, docID string, err error, transient bool) {
			r.queue.Async(func() { r.handleDocumentError(direction, docID, err, transient) })
		},
	}

	timer := logging.StartTimer(r.logger, "engine session created",
		logging.Operation(cause),
		logging.Attempt(r.attempts))
	started := time.Now()

	session, err := r.engine.CreateSession(
		r.config.Database,
		r.config.Target,
		r.config.Type.pushMode(r.config.Continuous),
		r.config.Type.pullMode(r.config.Continuous),
		opts,
		callbacks,
	)
	r.metrics.RecordSessionCreation(time.Since(started))

	if err != nil {
		timer.EndError(err)
		r.handleSessionEnded(err)
		return
	}
	timer.End()

	r.session = session
	r.config.Database.AddActiveReplicator(r)
	r.registered = true
	r.metrics.SessionStarted()

	r.publish(ActivityConnecting, Progress{}, nil)
}

// handleEngineStatus mirrors the engine's reported activity level. The
// controller fabricates only Offline and the synthetic terminal Stopped;
// everything else comes straight from here.
func (r *Replicator) handleEngineStatus(status EngineStatus) {
	if r.disposed || r.session == nil {
		return
	}

	if status.Level == ActivityStopped {
		r.handleSessionEnded(status.Err)
		return
	}

	r.publish(status.Level, status.Progress, nil)

	if status.Level > ActivityConnecting {
		r.disarmMonitor()
		r.attempts = 0
	}
}

// handleSessionEnded releases the session handle and decides between
// scheduling a retry, arming the reachability observer, and terminal stop.
func (r *Replicator) handleSessionEnded(err error) {
	if r.session != nil {
		r.session.Free()
		r.session = nil
		r.metrics.SessionEnded()
	}

	if err == nil {
		r.terminal(nil)
		return
	}

	kind := classifyError(err)
	if !isRetryable(kind, r.config.Continuous, r.attempts) {
		r.logger.Warn("session ended, not retryable",
			logging.Error(err),
			logging.String("kind", kind.String()),
			logging.Attempt(r.attempts))
		r.terminal(err)
		return
	}

	r.attempts++
	r.publish(ActivityOffline, r.progress, err)

	if kind == ErrorNetwork {
		// Network-dependent errors wait for connectivity, never a timer.
		r.armMonitor()
		return
	}

	delay := retryDelay(r.attempts)
	gen := r.retryGen
	r.logger.Info("retry scheduled",
		logging.Duration("delay", delay),
		logging.Attempt(r.attempts))
	r.queue.After(delay, func() { r.retryCmd(gen, "timer") })
}

// retryCmd re-creates the session when a retry timer fires. Preconditions
// substitute for cancellation: any event that moved the replicator out of
// Offline, invalidated the generation, or produced a session makes this a
// no-op.
func (r *Replicator) retryCmd(gen uint64, cause string) {
	if r.disposed || r.retryGen != gen || r.state != ActivityOffline || r.session != nil {
		return
	}
	r.metrics.RecordRetry(cause)
	r.createSession(cause)
}

// reachableCmd re-creates the session on a reachability recovery. Unlike
// the timer path, the attempt counter resets to zero.
func (r *Replicator) reachableCmd() {
	if r.disposed || !r.monitorArmed || r.state != ActivityOffline || r.session != nil {
		return
	}
	r.attempts = 0
	r.metrics.RecordRetry("reachability")
	r.createSession("reachability")
}

// terminal transitions to the terminal Stopped state
func (r *Replicator) terminal(err error) {
	r.disarmMonitor()
	r.retryGen++
	if r.registered {
		r.config.Database.RemoveActiveReplicator(r)
		r.registered = false
	}
	r.publish(ActivityStopped, r.progress, err)
}

// handleDocumentError routes pull conflicts to the resolver and logs every
// other per-document failure. Document-level errors never terminate the
// session or surface through the status stream.
func (r *Replicator) handleDocumentError(direction Direction, docID string, err error, transient bool) {
	if r.disposed {
		return
	}
	r.metrics.RecordDocError(direction.String())

	if direction == DirectionPull && isConflict(err) {
		r.metrics.RecordConflictResolved()
		if resolveErr := r.config.Database.ResolveConflict(docID, r.config.Resolver); resolveErr != nil {
			r.metrics.RecordConflictFailure()
			r.logger.Error("conflict resolution failed",
				logging.DocID(docID),
				logging.Error(resolveErr))
		}
		return
	}

	r.logger.Warn("document error",
		logging.DocID(docID),
		logging.String("direction", direction.String()),
		logging.Bool("transient", transient),
		logging.Error(err))
}

// armMonitor starts the reachability observer. Reachable events funnel
// through the queue and re-check preconditions there.
func (r *Replicator) armMonitor() {
	if r.monitorArmed {
		return
	}
	if r.monitor == nil {
		r.logger.Warn("no network monitor available, offline until explicit restart")
		return
	}

	err := r.monitor.Start(func(reachable bool) {
		if !reachable {
			return
		}
		r.queue.Async(func() { r.reachableCmd() })
	})
	if err != nil {
		r.logger.Error("failed to start network monitor", logging.Error(err))
		return
	}
	r.monitorArmed = true
	r.logger.Info("reachability observer armed")
}

// disarmMonitor stops the reachability observer if armed
func (r *Replicator) disarmMonitor() {
	if !r.monitorArmed {
		return
	}
	r.monitor.Stop()
	r.monitorArmed = false
	r.logger.Debug("reachability observer disarmed")
}

// publish installs a new status snapshot and notifies listeners, in
// registration order, inside the queue turn.
func (r *Replicator) publish(level ActivityLevel, progress Progress, err error) {
	r.state = level
	r.progress = progress

	st := Status{
		Level:     level,
		Progress:  progress,
		Err:       err,
		Timestamp: time.Now(),
	}
	r.status.Store(st)

	r.metrics.RecordStateTransition(level.String())
	r.metrics.UpdateProgress(progress.Completed, progress.Total)

	r.logger.Info("status changed",
		logging.State(level.String()),
		logging.Uint64("completed", progress.Completed),
		logging.Uint64("total", progress.Total),
		logging.Error(err))

	r.listeners.Publish(st)
}
