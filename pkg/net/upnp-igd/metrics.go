package upnpigd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "upnp_igd"

const (
	resultOK    = "ok"
	resultFault = "fault"
	resultError = "error"
)

type metrics struct {
	actions         *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	locations       prometheus.Counter
	anyPortAttempts prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "actions_total",
			Help:      "Control actions sent to gateways, by action and result.",
		}, []string{"action", "result"}),
		actionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "action_duration_seconds",
			Help:      "Round trip time of control actions.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"action"}),
		locations: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "discovered_locations_total",
			Help:      "Distinct gateway locations reported by discovery.",
		}),
		anyPortAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "any_port_attempts",
			Help:      "AddPortMapping attempts made by the any-port fallback per call.",
			Buckets:   prometheus.LinearBuckets(1, 1, DefaultAnyPortAttempts),
		}),
	}
}

func (m *metrics) observeAction(action, result string, seconds float64) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, result).Inc()
	m.actionDuration.WithLabelValues(action).Observe(seconds)
}

func (m *metrics) observeLocation() {
	if m == nil {
		return
	}
	m.locations.Inc()
}

func (m *metrics) observeAnyPortAttempts(n int) {
	if m == nil {
		return
	}
	m.anyPortAttempts.Observe(float64(n))
}
