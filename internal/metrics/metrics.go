// Package metrics exposes the engine's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	predictionsTotal *prometheus.CounterVec
	fusionsTotal     *prometheus.CounterVec
	signalsResolved  prometheus.Counter
	admissionsTotal  *prometheus.CounterVec
	ordersTotal      *prometheus.CounterVec
	commissionTotal  prometheus.Counter
	cycleDuration    *prometheus.HistogramVec
	cyclesSkipped    *prometheus.CounterVec

	portfolioValue prometheus.Gauge
	cashBalance    prometheus.Gauge
	positionCount  prometheus.Gauge
	maxDrawdown    prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		predictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_predictions_total",
				Help: "Total number of model predictions by outcome",
			},
			[]string{"model", "status"},
		),
		fusionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_fusions_total",
				Help: "Total number of ensemble fusions",
			},
			[]string{"method", "action"},
		),
		signalsResolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_signals_resolved_total",
				Help: "Total number of resolved signals",
			},
		),
		admissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_admissions_total",
				Help: "Total number of admission decisions by result",
			},
			[]string{"result"},
		),
		ordersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_orders_total",
				Help: "Total number of orders by terminal status",
			},
			[]string{"status"},
		),
		commissionTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_commission_total",
				Help: "Total commission paid",
			},
		),
		cycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aegis_cycle_duration_seconds",
				Help:    "Cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"cycle"},
		),
		cyclesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_cycles_skipped_total",
				Help: "Cycles skipped because the previous run was still in flight",
			},
			[]string{"cycle"},
		),
		portfolioValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aegis_portfolio_total_value",
				Help: "Current total portfolio value",
			},
		),
		cashBalance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aegis_portfolio_cash_balance",
				Help: "Current cash balance",
			},
		),
		positionCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aegis_portfolio_positions",
				Help: "Number of open positions",
			},
		),
		maxDrawdown: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aegis_portfolio_max_drawdown_percent",
				Help: "Maximum drawdown of total value, percent",
			},
		),
	}

	reg.MustRegister(r.predictionsTotal)
	reg.MustRegister(r.fusionsTotal)
	reg.MustRegister(r.signalsResolved)
	reg.MustRegister(r.admissionsTotal)
	reg.MustRegister(r.ordersTotal)
	reg.MustRegister(r.commissionTotal)
	reg.MustRegister(r.cycleDuration)
	reg.MustRegister(r.cyclesSkipped)
	reg.MustRegister(r.portfolioValue)
	reg.MustRegister(r.cashBalance)
	reg.MustRegister(r.positionCount)
	reg.MustRegister(r.maxDrawdown)

	return r
}

// RecordPrediction records one model prediction outcome
// ("ok", "error" or "stale").
func (r *Registry) RecordPrediction(model, status string) {
	r.predictionsTotal.WithLabelValues(model, status).Inc()
}

// RecordFusion records a completed fusion.
func (r *Registry) RecordFusion(method, action string) {
	r.fusionsTotal.WithLabelValues(method, action).Inc()
}

// RecordResolved records resolved signals.
func (r *Registry) RecordResolved(count int) {
	r.signalsResolved.Add(float64(count))
}

// RecordAdmission records an admission decision; result is "admitted"
// or the rejection reason.
func (r *Registry) RecordAdmission(result string) {
	r.admissionsTotal.WithLabelValues(result).Inc()
}

// RecordOrder records a terminal order.
func (r *Registry) RecordOrder(status string, commission float64) {
	r.ordersTotal.WithLabelValues(status).Inc()
	if commission > 0 {
		r.commissionTotal.Add(commission)
	}
}

// RecordCycle records a completed cycle.
func (r *Registry) RecordCycle(cycle string, duration float64) {
	r.cycleDuration.WithLabelValues(cycle).Observe(duration)
}

// RecordCycleSkipped records a cycle skipped due to overrun.
func (r *Registry) RecordCycleSkipped(cycle string) {
	r.cyclesSkipped.WithLabelValues(cycle).Inc()
}

// SetPortfolio updates the portfolio gauges.
func (r *Registry) SetPortfolio(totalValue, cash float64, positions int, maxDrawdown float64) {
	r.portfolioValue.Set(totalValue)
	r.cashBalance.Set(cash)
	r.positionCount.Set(float64(positions))
	r.maxDrawdown.Set(maxDrawdown)
}
