package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metrics are initialized
	if r.ReplicatorSessionsActive == nil {
		t.Error("ReplicatorSessionsActive not initialized")
	}
	if r.ReplicatorStateTransitions == nil {
		t.Error("ReplicatorStateTransitions not initialized")
	}
	if r.ReplicatorRetriesTotal == nil {
		t.Error("ReplicatorRetriesTotal not initialized")
	}
	if r.ReplicatorSessionCreation == nil {
		t.Error("ReplicatorSessionCreation not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	// Should return the same instance
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordStateTransition(t *testing.T) {
	r := NewRegistry()

	r.RecordStateTransition("connecting")
	r.RecordStateTransition("connecting")
	r.RecordStateTransition("offline")

	counter, err := r.ReplicatorStateTransitions.GetMetricWithLabelValues("connecting")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Counter value = %v, want 2", metric.Counter.GetValue())
	}
}

func TestRecordRetry(t *testing.T) {
	r := NewRegistry()

	r.RecordRetry("timer")
	r.RecordRetry("reachability")
	r.RecordRetry("timer")

	counter, err := r.ReplicatorRetriesTotal.GetMetricWithLabelValues("timer")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("timer retries = %v, want 2", metric.Counter.GetValue())
	}
}

func TestSessionGauge(t *testing.T) {
	r := NewRegistry()

	r.SessionStarted()
	r.SessionStarted()
	r.SessionEnded()

	var metric dto.Metric
	if err := r.ReplicatorSessionsActive.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Gauge.GetValue() != 1 {
		t.Errorf("Active sessions = %v, want 1", metric.Gauge.GetValue())
	}
}

func TestRecordSessionCreation(t *testing.T) {
	r := NewRegistry()

	r.RecordSessionCreation(50 * time.Millisecond)

	var metric dto.Metric
	if err := r.ReplicatorSessionCreation.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("Sample count = %v, want 1", metric.Histogram.GetSampleCount())
	}
}

func TestUpdateProgress(t *testing.T) {
	r := NewRegistry()

	r.UpdateProgress(5, 10)

	var completed dto.Metric
	if err := r.ReplicatorProgressCompleted.Write(&completed); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if completed.Gauge.GetValue() != 5 {
		t.Errorf("Completed = %v, want 5", completed.Gauge.GetValue())
	}

	var total dto.Metric
	if err := r.ReplicatorProgressTotal.Write(&total); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if total.Gauge.GetValue() != 10 {
		t.Errorf("Total = %v, want 10", total.Gauge.GetValue())
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()

	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))

	var uptime dto.Metric
	if err := r.UptimeSeconds.Write(&uptime); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if uptime.Gauge.GetValue() < 59 {
		t.Errorf("Uptime = %v, want >= 59", uptime.Gauge.GetValue())
	}
}
