package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once               sync.Once
	stageDuration      *prom.HistogramVec
	runDuration        prom.Histogram
	invocationDuration *prom.HistogramVec
	verdicts           *prom.CounterVec
	buildConcurrency   prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "dockeeper",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual verification stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "dockeeper",
			Name:      "run_duration_seconds",
			Help:      "Total verification run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.invocationDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "dockeeper",
			Name:      "invocation_duration_seconds",
			Help:      "Duration of external toolchain invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"})
		pr.verdicts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dockeeper",
			Name:      "verdicts_total",
			Help:      "Fragment verdicts by kind",
		}, []string{"kind"})
		pr.buildConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "dockeeper",
			Name:      "build_concurrency",
			Help:      "Configured bound for parallel isolated builds",
		})
		reg.MustRegister(pr.stageDuration, pr.runDuration, pr.invocationDuration, pr.verdicts, pr.buildConcurrency)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveInvocationDuration(kind string, d time.Duration) {
	if p == nil || p.invocationDuration == nil {
		return
	}
	p.invocationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncVerdict(kind string) {
	if p == nil || p.verdicts == nil {
		return
	}
	p.verdicts.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetBuildConcurrency(n int) {
	if p == nil || p.buildConcurrency == nil {
		return
	}
	p.buildConcurrency.Set(float64(n))
}
