// Package metrics publica las métricas del evaluador en Prometheus.
package metrics

import (
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "challenge"

// Recorder implementa ports.MetricsRecorder.
type Recorder struct {
	profitPct        *prometheus.GaugeVec
	maxDrawdownPct   *prometheus.GaugeVec
	dailyDrawdownPct *prometheus.GaugeVec
	tradingDays      *prometheus.GaugeVec
	equity           *prometheus.GaugeVec
	stale            *prometheus.GaugeVec

	reportsTotal      *prometheus.CounterVec
	connectorFailures *prometheus.CounterVec
	riskEvents        *prometheus.CounterVec

	batchDuration prometheus.Histogram
	batchAccounts prometheus.Gauge
	batchFailed   prometheus.Gauge
}

// New crea el Recorder y registra sus colectores en reg.
func New(reg prometheus.Registerer) *Recorder {
	account := []string{"account_id"}
	r := &Recorder{
		profitPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profit_pct",
			Help:      "Current profit as a percentage of the baseline balance",
		}, account),
		maxDrawdownPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_drawdown_pct",
			Help:      "Maximum peak-to-trough drawdown within the window",
		}, account),
		dailyDrawdownPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_drawdown_pct",
			Help:      "Worst single-day loss as a percentage of the baseline balance",
		}, account),
		tradingDays: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trading_days",
			Help:      "Distinct trading days within the window",
		}, account),
		equity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "equity",
			Help:      "Last observed account equity",
		}, account),
		stale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_stale",
			Help:      "1 when the latest report was served from a previous evaluation",
		}, account),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Reports produced, by resulting state",
		}, []string{"state"}),
		connectorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connector_failures_total",
			Help:      "Trading data connector failures after retries",
		}, account),
		riskEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_events_total",
			Help:      "Events received from the external risk tracker",
		}, []string{"type"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of an evaluation batch",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		batchAccounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_accounts",
			Help:      "Accounts evaluated in the last batch",
		}),
		batchFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_failed_accounts",
			Help:      "Accounts whose connector failed in the last batch",
		}),
	}

	reg.MustRegister(
		r.profitPct,
		r.maxDrawdownPct,
		r.dailyDrawdownPct,
		r.tradingDays,
		r.equity,
		r.stale,
		r.reportsTotal,
		r.connectorFailures,
		r.riskEvents,
		r.batchDuration,
		r.batchAccounts,
		r.batchFailed,
	)
	return r
}

func (r *Recorder) ObserveReport(report domain.Report) {
	id := report.AccountID
	r.profitPct.WithLabelValues(id).Set(report.Metrics.ProfitTarget)
	r.maxDrawdownPct.WithLabelValues(id).Set(report.Metrics.MaxDrawdown)
	r.dailyDrawdownPct.WithLabelValues(id).Set(report.Metrics.DailyDrawdown)
	r.tradingDays.WithLabelValues(id).Set(float64(report.Metrics.TradingDays))
	r.equity.WithLabelValues(id).Set(report.Equity)
	if report.Stale {
		r.stale.WithLabelValues(id).Set(1)
	} else {
		r.stale.WithLabelValues(id).Set(0)
	}
	r.reportsTotal.WithLabelValues(string(report.State)).Inc()
}

func (r *Recorder) IncConnectorFailure(accountID string) {
	r.connectorFailures.WithLabelValues(accountID).Inc()
}

func (r *Recorder) IncRiskEvent(eventType domain.RiskEventType) {
	r.riskEvents.WithLabelValues(string(eventType)).Inc()
}

func (r *Recorder) ObserveBatch(duration time.Duration, accounts, failed int) {
	r.batchDuration.Observe(duration.Seconds())
	r.batchAccounts.Set(float64(accounts))
	r.batchFailed.Set(float64(failed))
}
