package rpc

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks Prometheus metrics for one Transport. Methods are exposed
// as plain field accesses rather than Record* wrappers since every
// caller already holds a non-nil *Metrics (NewTransport substitutes a
// disconnected instance when the caller passes nil).
type Metrics struct {
	CallErrors        prometheus.Counter
	CallLatency       prometheus.Histogram
	Reconnects        prometheus.Counter
	ReconnectFailures prometheus.Counter
}

// NewMetrics creates and registers transport metrics. If registerer is nil,
// the metrics are left unregistered (useful for tests that construct many
// transports and would otherwise collide on prometheus.DefaultRegisterer).
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		CallErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc4",
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Total RPC calls that failed (timeout, reject, or connection error).",
		}),
		CallLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tc4",
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "RPC call round-trip latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc4",
			Subsystem: "rpc",
			Name:      "reconnects_total",
			Help:      "Total successful (re)connections to the server.",
		}),
		ReconnectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc4",
			Subsystem: "rpc",
			Name:      "reconnect_failures_total",
			Help:      "Total failed connection attempts.",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(m.CallErrors, m.CallLatency, m.Reconnects, m.ReconnectFailures)
	}
	return m
}
