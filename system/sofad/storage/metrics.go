package storage

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts store operations. A nil *Metrics records nothing.
type Metrics struct {
	ops     *prometheus.CounterVec
	retries *prometheus.CounterVec
	busy    prometheus.Counter
}

// NewMetrics creates the store metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sofa",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by name and outcome.",
		}, []string{"op", "result"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sofa",
			Subsystem: "store",
			Name:      "cas_retries_total",
			Help:      "Publishes lost to a concurrent writer.",
		}, []string{"op"}),
		busy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sofa",
			Subsystem: "store",
			Name:      "busy_total",
			Help:      "Operations that exhausted their retry budget.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.retries, m.busy)
	}
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	kind := errorKind(err)
	if kind == "busy" {
		m.busy.Inc()
	}
	m.ops.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) retried(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}
