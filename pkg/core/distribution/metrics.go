package distribution

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives engine instrumentation
type Metrics interface {
	// RecordAssignment counts one slot placed by a stage for a staff kind
	RecordAssignment(stage string, kind string)

	// RecordUnfilled counts slots of a post type left open after the run
	RecordUnfilled(postType string, n int)

	// ObserveStage records how long a stage took
	ObserveStage(stage string, d time.Duration)

	// RecordRecovered counts stages that recovered from a panic
	RecordRecovered(stage string)
}

// NopMetrics discards everything
type NopMetrics struct{}

var _ Metrics = (*NopMetrics)(nil)

// NewNop returns a Metrics that records nothing
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

func (*NopMetrics) RecordAssignment(string, string)    {}
func (*NopMetrics) RecordUnfilled(string, int)         {}
func (*NopMetrics) ObserveStage(string, time.Duration) {}
func (*NopMetrics) RecordRecovered(string)             {}

// PrometheusCollector implements Metrics backed by Prometheus.
// One collector can be shared by every engine of a process.
type PrometheusCollector struct {
	*NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	assignments   *prometheus.CounterVec
	unfilled      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	recovered     *prometheus.CounterVec
}

var _ Metrics = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace (defaults to "roster" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "roster"
	}
	return &PrometheusCollector{NopMetrics: NewNop(), reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.assignments = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "assignments_total",
			Help:      "Total slots assigned by stage and staff kind.",
		}, []string{"stage", "kind"})

		p.unfilled = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "unfilled_slots_total",
			Help:      "Total slots left open after distribution by post type.",
		}, []string{"post"})

		p.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each distribution stage in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}, []string{"stage"})

		p.recovered = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "stage_panics_total",
			Help:      "Total stages that recovered from a panic.",
		}, []string{"stage"})

		p.reg.MustRegister(p.assignments)
		p.reg.MustRegister(p.unfilled)
		p.reg.MustRegister(p.stageDuration)
		p.reg.MustRegister(p.recovered)
	})
}

// RecordAssignment implements Metrics
func (p *PrometheusCollector) RecordAssignment(stage string, kind string) {
	p.ensureRegistered()
	p.assignments.WithLabelValues(stage, kind).Inc()
}

// RecordUnfilled implements Metrics
func (p *PrometheusCollector) RecordUnfilled(postType string, n int) {
	p.ensureRegistered()
	p.unfilled.WithLabelValues(postType).Add(float64(n))
}

// ObserveStage implements Metrics
func (p *PrometheusCollector) ObserveStage(stage string, d time.Duration) {
	p.ensureRegistered()
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRecovered implements Metrics
func (p *PrometheusCollector) RecordRecovered(stage string) {
	p.ensureRegistered()
	p.recovered.WithLabelValues(stage).Inc()
}
