package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

	if m.namespace != "ladder" {
		t.Errorf("expected namespace ladder, got %s", m.namespace)
	}
	if m.subsystem != "ranking" {
		t.Errorf("expected subsystem ranking, got %s", m.subsystem)
	}
	if !m.enabled {
		t.Error("expected metrics enabled by default")
	}
}

func TestNewManager_Options(t *testing.T) {
	m := NewManager(
		WithPrometheusRegistry(prometheus.NewRegistry()),
		WithNamespace("custom"),
		WithSubsystem("sub"),
		WithHistogramBuckets([]float64{1, 2, 3}),
		WithMetricsEnabled(false),
		WithRefreshInterval(time.Minute),
	)

	if m.namespace != "custom" {
		t.Errorf("expected namespace custom, got %s", m.namespace)
	}
	if m.subsystem != "sub" {
		t.Errorf("expected subsystem sub, got %s", m.subsystem)
	}
	if m.enabled {
		t.Error("expected metrics disabled")
	}
	if m.refreshInterval != time.Minute {
		t.Errorf("expected refresh interval 1m, got %v", m.refreshInterval)
	}
}

func TestPackageHelpers_DoNotPanic(t *testing.T) {
	// The global manager registers on the custom registry; all helpers must
	// be safe to call at any time.
	RecordRankingQuery("top")
	RecordRankingQuery("filtered")
	RecordRankingQuery("rival")
	RecordScoreUpdate()
	RecordScoreUpdateError()
	RecordPointEvent()
	RecordDuplicateEvent()
	UpdateCacheSize(10)
	RecordCacheUpdateLatency(0.5)
	RecordCacheQueryLatency(0.3)
	RecordCacheReload()
	RecordStoreQueryLatency(2.0)
	RecordStoreError()
	RecordJobRun("rank_recompute")
	RecordJobFailure("rank_recompute")
	RecordJobDuration("rank_recompute", 120)
	UpdateJobLastSuccess("rank_recompute", 1700000000)
	UpdateQueueSize(5)
	UpdateQueueCapacity(1000)
	RecordQueueEnqueue()
	RecordQueueEnqueueError()
	RecordQueueDequeue()
	UpdateWorkerCount(4)
	RecordWorkerProcessingLatency(1.2)
	RecordWorkerError()
	RecordHTTPRequest("rankings", "GET", "200")
	RecordHTTPRequestDuration("rankings", "GET", "200", 3.4)
	RecordErrorByComponent("cache", "closed")
}

func TestGetRegistry(t *testing.T) {
	if GetRegistry() == nil {
		t.Fatal("expected non-nil registry")
	}
	if _, err := GetRegistry().Gather(); err != nil {
		t.Fatalf("gather failed: %v", err)
	}
}
