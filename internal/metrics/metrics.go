// Package metrics exposes Prometheus collectors for program execution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autoexpr"

// Collector groups the execution metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	KernelCalls      *prometheus.CounterVec
	TempAllocations  prometheus.Counter
	TempReleases     prometheus.Counter
	TempLiveElements prometheus.Gauge
	Runs             *prometheus.CounterVec
	RunDuration      prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// Passing nil registers nothing, which is useful in tests.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		KernelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kernel_calls_total",
			Help:      "Vector kernel invocations by operation.",
		}, []string{"op"}),
		TempAllocations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_allocations_total",
			Help:      "Temporary buffers allocated while running programs.",
		}),
		TempReleases: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_releases_total",
			Help:      "Temporary buffers released while running programs.",
		}),
		TempLiveElements: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temp_live_elements",
			Help:      "Elements currently held by temporary buffers.",
		}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Program executions by outcome.",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a program execution.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
}

// Kernel counts one kernel call.
func (c *Collector) Kernel(op string) {
	if c == nil {
		return
	}
	c.KernelCalls.WithLabelValues(op).Inc()
}

// Alloc records a temp allocation of n elements.
func (c *Collector) Alloc(n int) {
	if c == nil {
		return
	}
	c.TempAllocations.Inc()
	c.TempLiveElements.Add(float64(n))
}

// Release records a temp release of n elements.
func (c *Collector) Release(n int) {
	if c == nil {
		return
	}
	c.TempReleases.Inc()
	c.TempLiveElements.Sub(float64(n))
}

// Run records a finished execution.
func (c *Collector) Run(seconds float64, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.Runs.WithLabelValues(outcome).Inc()
	c.RunDuration.Observe(seconds)
}
