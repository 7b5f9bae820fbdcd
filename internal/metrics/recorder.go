package metrics

import "time"

// Recorder defines observability hooks for verification runs. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for
// concurrent use; the NoopRecorder allows optional injection without nil
// checks at call sites.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	ObserveInvocationDuration(kind string, d time.Duration) // kind: shared|isolated
	IncVerdict(kind string)
	SetBuildConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)      {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                {}
func (NoopRecorder) ObserveInvocationDuration(string, time.Duration) {}
func (NoopRecorder) IncVerdict(string)                               {}
func (NoopRecorder) SetBuildConcurrency(int)                         {}
