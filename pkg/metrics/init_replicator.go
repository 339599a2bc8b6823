package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initReplicatorMetrics() {
	r.ReplicatorSessionsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "clusosync_replicator_sessions_active",
			Help: "Number of currently active engine sessions",
		},
	)

	r.ReplicatorStateTransitions = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusosync_replicator_state_transitions_total",
			Help: "Total number of replicator state transitions",
		},
		[]string{"state"}, // stopped, offline, connecting, idle, busy
	)

	r.ReplicatorRetriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusosync_replicator_retries_total",
			Help: "Total number of session retries",
		},
		[]string{"cause"}, // timer, reachability
	)

	r.ReplicatorDocErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusosync_replicator_doc_errors_total",
			Help: "Total number of per-document replication errors",
		},
		[]string{"direction"}, // push, pull
	)

	r.ReplicatorConflictsResolved = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "clusosync_replicator_conflicts_resolved_total",
			Help: "Total number of pull conflicts routed to the resolver",
		},
	)

	r.ReplicatorConflictFailures = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "clusosync_replicator_conflict_failures_total",
			Help: "Total number of conflict resolver failures",
		},
	)

	r.ReplicatorSessionCreation = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clusosync_replicator_session_creation_seconds",
			Help:    "Latency of engine session creation",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.ReplicatorProgressCompleted = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "clusosync_replicator_progress_completed_units",
			Help: "Completed progress units of the current session",
		},
	)

	r.ReplicatorProgressTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "clusosync_replicator_progress_total_units",
			Help: "Total progress units of the current session",
		},
	)
}
