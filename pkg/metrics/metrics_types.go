package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Replicator Metrics
	ReplicatorSessionsActive    prometheus.Gauge
	ReplicatorStateTransitions  *prometheus.CounterVec
	ReplicatorRetriesTotal      *prometheus.CounterVec
	ReplicatorDocErrorsTotal    *prometheus.CounterVec
	ReplicatorConflictsResolved prometheus.Counter
	ReplicatorConflictFailures  prometheus.Counter
	ReplicatorSessionCreation   prometheus.Histogram
	ReplicatorProgressCompleted prometheus.Gauge
	ReplicatorProgressTotal     prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initReplicatorMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
