package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Action outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	registry *prometheus.Registry
	actions  *prometheus.CounterVec
	requests *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vegas"
	}
	registry := prometheus.NewRegistry()
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "game_actions_total",
		Help:      "Provider game actions by play type and outcome.",
	}, []string{"playtype", "outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Provider RPC calls by method and result code.",
	}, []string{"method", "code"})
	registry.MustRegister(actions, requests)
	return &Metrics{registry: registry, actions: actions, requests: requests}
}

func (m *Metrics) ObserveAction(playType, outcome string) {
	m.actions.WithLabelValues(playType, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, code string) {
	m.requests.WithLabelValues(method, code).Inc()
}

func (m *Metrics) Actions() *prometheus.CounterVec { return m.actions }

func (m *Metrics) Requests() *prometheus.CounterVec { return m.requests }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
