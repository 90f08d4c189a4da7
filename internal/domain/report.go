package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportMetrics son las métricas brutas del contrato de salida.
type ReportMetrics struct {
	DailyDrawdown float64 `json:"dailyDrawdown"`
	MaxDrawdown   float64 `json:"maxDrawdown"`
	ProfitTarget  float64 `json:"profitTarget"` // profit actual en % del baseline
	TotalTrades   int     `json:"totalTrades"`
	TradingDays   int     `json:"tradingDays"`
}

// Report es el objeto JSON por cuenta que consume el Reporting Layer.
// Los porcentajes se redondean a 2 decimales solo aquí.
type Report struct {
	AccountID   string        `json:"accountId"`
	Equity      float64       `json:"equity"`
	Metrics     ReportMetrics `json:"metrics"`
	Progress    Progress      `json:"progress"`
	State       State         `json:"state"`
	Warnings    []Warning     `json:"warnings,omitempty"`
	Stale       bool          `json:"stale,omitempty"`
	EvaluatedAt time.Time     `json:"evaluatedAt"`
}

// NewReport construye el Report redondeando cada valor en coma flotante.
func NewReport(a Assessment, at time.Time) Report {
	return Report{
		AccountID: a.AccountID,
		Equity:    Round2(a.Equity),
		Metrics: ReportMetrics{
			DailyDrawdown: Round2(a.DailyDrawdownPct),
			MaxDrawdown:   Round2(a.MaxDrawdownPct),
			ProfitTarget:  Round2(a.ProfitPct),
			TotalTrades:   a.TotalTrades,
			TradingDays:   a.TradingDays,
		},
		Progress: Progress{
			ProfitTarget:   Round2(a.Progress.ProfitTarget),
			MaxDrawdown:    Round2(a.Progress.MaxDrawdown),
			MinTradingDays: Round2(a.Progress.MinTradingDays),
		},
		State:       a.State,
		Warnings:    append([]Warning(nil), a.Warnings...),
		EvaluatedAt: at.UTC(),
	}
}

// UnavailableReport es el resultado de una cuenta cuyo connector falló y
// no hay histórico previo: métricas a cero y el estado que tenga la cuenta.
func UnavailableReport(account Account, at time.Time) Report {
	return Report{
		AccountID:   account.ID,
		Equity:      Round2(account.BaselineBalance),
		Progress:    Progress{MaxDrawdown: 100},
		State:       account.Status.State(),
		Warnings:    []Warning{WarnConnectorUnavailable},
		Stale:       true,
		EvaluatedAt: at.UTC(),
	}
}

// MarkStale devuelve una copia del report marcada como stale por fallo del connector.
func (r Report) MarkStale() Report {
	r.Stale = true
	r.Warnings = append([]Warning(nil), r.Warnings...)
	for _, w := range r.Warnings {
		if w == WarnConnectorUnavailable {
			return r
		}
	}
	r.Warnings = append(r.Warnings, WarnConnectorUnavailable)
	return r
}

// Round2 redondea a 2 decimales (half away from zero).
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
