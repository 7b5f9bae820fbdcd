package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("synthesize", 150*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.ObserveInvocationDuration("isolated", 250*time.Millisecond)
	pr.IncVerdict("passed")
	pr.IncVerdict("mismatched_expectation")
	pr.SetBuildConcurrency(8)
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}
