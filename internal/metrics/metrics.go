// ABOUTME: Prometheus collectors for authentication and gate activity
// ABOUTME: Registered on a caller-supplied registry; nil *Metrics records nothing

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "creatordash"

// Result labels for auth attempts.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds the dashboard's collectors.
type Metrics struct {
	registry *prometheus.Registry

	authAttempts   *prometheus.CounterVec
	signOuts       *prometheus.CounterVec
	gateViews      *prometheus.CounterVec
	activeVisitors prometheus.Gauge
	eventStreams   prometheus.Gauge
	expiredPurged  prometheus.Counter
}

// New creates the collectors on a fresh registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Credential form submissions by mode and result",
		}, []string{"mode", "result"}),

		signOuts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_outs_total",
			Help:      "Sign-out requests by result",
		}, []string{"result"}),

		gateViews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_views_total",
			Help:      "Gate renders by selected view",
		}, []string{"view"}),

		activeVisitors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_visitors",
			Help:      "Visitors with a live session store",
		}),

		eventStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_streams",
			Help:      "Open server-sent event streams",
		}),

		expiredPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_sessions_purged_total",
			Help:      "Expired session rows deleted by the janitor",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AuthAttempt(mode, result string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) SignOut(result string) {
	if m == nil {
		return
	}
	m.signOuts.WithLabelValues(result).Inc()
}

func (m *Metrics) GateView(view string) {
	if m == nil {
		return
	}
	m.gateViews.WithLabelValues(view).Inc()
}

func (m *Metrics) VisitorAdded() {
	if m == nil {
		return
	}
	m.activeVisitors.Inc()
}

func (m *Metrics) VisitorRemoved() {
	if m == nil {
		return
	}
	m.activeVisitors.Dec()
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.eventStreams.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.eventStreams.Dec()
}

func (m *Metrics) SessionsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredPurged.Add(float64(n))
}
