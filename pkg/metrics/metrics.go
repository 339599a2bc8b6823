package metrics

import (
	"runtime"
	"time"
)

// RecordStateTransition records a replicator state transition
func (r *Registry) RecordStateTransition(state string) {
	r.ReplicatorStateTransitions.WithLabelValues(state).Inc()
}

// RecordRetry records a session retry and its cause
func (r *Registry) RecordRetry(cause string) {
	r.ReplicatorRetriesTotal.WithLabelValues(cause).Inc()
}

// RecordDocError records a per-document replication error
func (r *Registry) RecordDocError(direction string) {
	r.ReplicatorDocErrorsTotal.WithLabelValues(direction).Inc()
}

// RecordConflictResolved records a pull conflict handed to the resolver
func (r *Registry) RecordConflictResolved() {
	r.ReplicatorConflictsResolved.Inc()
}

// RecordConflictFailure records a conflict resolver failure
func (r *Registry) RecordConflictFailure() {
	r.ReplicatorConflictFailures.Inc()
}

// RecordSessionCreation records the latency of an engine session creation
func (r *Registry) RecordSessionCreation(duration time.Duration) {
	r.ReplicatorSessionCreation.Observe(duration.Seconds())
}

// SessionStarted increments the active session gauge
func (r *Registry) SessionStarted() {
	r.ReplicatorSessionsActive.Inc()
}

// SessionEnded decrements the active session gauge
func (r *Registry) SessionEnded() {
	r.ReplicatorSessionsActive.Dec()
}

// UpdateProgress updates the progress gauges for the current session
func (r *Registry) UpdateProgress(completed, total uint64) {
	r.ReplicatorProgressCompleted.Set(float64(completed))
	r.ReplicatorProgressTotal.Set(float64(total))
}

// UpdateSystemMetrics updates uptime and runtime metrics
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
}
