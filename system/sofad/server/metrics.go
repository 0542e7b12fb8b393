package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signadot/sofa/system/sofad/api"
	"go.lsp.dev/jsonrpc2"
)

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	calls    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sofa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sofa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"method", "route"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sofa",
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "JSON-RPC calls by method and error code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(m.requests, m.latency, m.calls)
	return m
}

func (m *metrics) request(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// rpc counts a call. Protocol errors are labelled with their numeric
// JSON-RPC code, application errors with their api code.
func (m *metrics) rpc(method string, err error) {
	code := "ok"
	var rpcErr *jsonrpc2.Error
	switch {
	case err == nil:
	case errors.As(err, &rpcErr):
		code = strconv.Itoa(int(rpcErr.Code))
	default:
		code = api.FromError(err).Code
	}
	m.calls.WithLabelValues(method, code).Inc()
}
