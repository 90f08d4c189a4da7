package metrics_test

import (
	"testing"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/adapters/metrics"
	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gather devuelve name → label → valor (gauge, counter o sample count del histograma).
func gather(t *testing.T, reg *prometheus.Registry) map[string]map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]map[string]float64)
	for _, f := range families {
		values := make(map[string]float64)
		for _, m := range f.GetMetric() {
			label := ""
			if len(m.GetLabel()) > 0 {
				label = m.GetLabel()[0].GetValue()
			}
			switch {
			case m.GetGauge() != nil:
				values[label] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				values[label] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				values[label] = float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[f.GetName()] = values
	}
	return out
}

func TestRecorder_ObserveReport(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	rec.ObserveReport(domain.Report{
		AccountID: "acc-1",
		Equity:    51000,
		Metrics:   domain.ReportMetrics{DailyDrawdown: 1.5, MaxDrawdown: 1.92, ProfitTarget: 2, TradingDays: 3},
		State:     domain.StateInProgress,
	})
	rec.ObserveReport(domain.Report{AccountID: "acc-2", State: domain.StateFailed, Stale: true})

	got := gather(t, reg)
	assert.Equal(t, 2.0, got["challenge_profit_pct"]["acc-1"])
	assert.Equal(t, 1.92, got["challenge_max_drawdown_pct"]["acc-1"])
	assert.Equal(t, 1.5, got["challenge_daily_drawdown_pct"]["acc-1"])
	assert.Equal(t, 3.0, got["challenge_trading_days"]["acc-1"])
	assert.Equal(t, 51000.0, got["challenge_equity"]["acc-1"])
	assert.Equal(t, 0.0, got["challenge_report_stale"]["acc-1"])
	assert.Equal(t, 1.0, got["challenge_report_stale"]["acc-2"])
	assert.Equal(t, 1.0, got["challenge_reports_total"]["IN_PROGRESS"])
	assert.Equal(t, 1.0, got["challenge_reports_total"]["FAILED"])
}

func TestRecorder_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	rec.IncConnectorFailure("acc-1")
	rec.IncConnectorFailure("acc-1")
	rec.IncRiskEvent(domain.RiskDailyDrawdown)
	rec.ObserveBatch(1500*time.Millisecond, 10, 2)

	got := gather(t, reg)
	assert.Equal(t, 2.0, got["challenge_connector_failures_total"]["acc-1"])
	assert.Equal(t, 1.0, got["challenge_risk_events_total"]["dailyDrawdown"])
	assert.Equal(t, 1.0, got["challenge_batch_duration_seconds"][""])
	assert.Equal(t, 10.0, got["challenge_batch_accounts"][""])
	assert.Equal(t, 2.0, got["challenge_batch_failed_accounts"][""])
}

func TestRecorder_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	assert.Panics(t, func() { metrics.New(reg) })
}
