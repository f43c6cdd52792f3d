// Package metrics exposes the service's Prometheus instrumentation on a
// private registry so tests can create as many instances as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters shared by the API and the background loops.
type Metrics struct {
	registry *prometheus.Registry

	paymentsCreatedTotal *prometheus.CounterVec
	transitionsTotal     *prometheus.CounterVec
	stepErrorsTotal      *prometheus.CounterVec
	payoutsTotal         *prometheus.CounterVec
	openPayments         prometheus.Gauge
}

// New creates a metrics set backed by its own registry.
func New() *Metrics {
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zuripay_payments_created_total",
		Help: "Total number of payment intents created",
	}, []string{"pay_asset", "dest_asset"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zuripay_state_transitions_total",
		Help: "Payment lifecycle transitions",
	}, []string{"from", "to"})

	stepErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zuripay_step_errors_total",
		Help: "Errors encountered while advancing payments",
	}, []string{"step", "kind"})

	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zuripay_solver_payouts_total",
		Help: "Payouts attempted by the solver",
	}, []string{"chain", "result"})

	open := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zuripay_open_payments",
		Help: "Payments in a non-terminal state",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(created, transitions, stepErrors, payouts, open)

	return &Metrics{
		registry:             r,
		paymentsCreatedTotal: created,
		transitionsTotal:     transitions,
		stepErrorsTotal:      stepErrors,
		payoutsTotal:         payouts,
		openPayments:         open,
	}
}

// Handler serves this registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncPaymentCreated(payAsset, destAsset string) {
	m.paymentsCreatedTotal.WithLabelValues(payAsset, destAsset).Inc()
}

func (m *Metrics) IncTransition(from, to string) {
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncStepError(step, kind string) {
	m.stepErrorsTotal.WithLabelValues(step, kind).Inc()
}

func (m *Metrics) IncPayout(chain, result string) {
	m.payoutsTotal.WithLabelValues(chain, result).Inc()
}

func (m *Metrics) SetOpenPayments(n int) {
	m.openPayments.Set(float64(n))
}
