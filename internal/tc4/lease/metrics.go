package lease

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks Prometheus metrics for lease lifecycle events.
type Metrics struct {
	Established       prometheus.Counter
	SetClientIDErrors prometheus.Counter
	Renewals          prometheus.Counter
	RenewErrors       prometheus.Counter
}

// NewMetrics creates and, if registerer is non-nil, registers lease
// metrics.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		Established: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc4",
			Subsystem: "lease",
			Name:      "established_total",
			Help:      "Total successful SETCLIENTID/SETCLIENTID_CONFIRM handshakes.",
		}),
		SetClientIDErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc4",
			Subsystem: "lease",
			Name:      "setclientid_errors_total",
			Help:      "Total failed SETCLIENTID or SETCLIENTID_CONFIRM attempts.",
		}),
		Renewals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc4",
			Subsystem: "lease",
			Name:      "renewals_total",
			Help:      "Total successful RENEW calls.",
		}),
		RenewErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc4",
			Subsystem: "lease",
			Name:      "renew_errors_total",
			Help:      "Total failed RENEW calls.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.Established, m.SetClientIDErrors, m.Renewals, m.RenewErrors)
	}
	return m
}
