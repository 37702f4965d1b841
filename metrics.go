package autoreg

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records registration pass statistics in Prometheus.
type Metrics struct {
	plans    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the pass collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoreg",
			Name:      "plans_total",
			Help:      "Registration plans bound, by binder entry point.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoreg",
			Name:      "pass_failures_total",
			Help:      "Aborted registration passes, by error kind.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "autoreg",
			Name:      "pass_duration_seconds",
			Help:      "Duration of registration passes.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{m.plans, m.failures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observePlan(p *Plan) {
	if m == nil {
		return
	}
	kind := "concrete"
	if p.Generic {
		kind = "generic"
	}
	m.plans.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeFailure(err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(errorReason(err)).Inc()
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
