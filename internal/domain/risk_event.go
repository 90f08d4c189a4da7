package domain

import "time"

// RiskEventType es el tipo de umbral que reporta el risk tracker externo.
type RiskEventType string

const (
	RiskDailyDrawdown RiskEventType = "dailyDrawdown"
	RiskMaxDrawdown   RiskEventType = "maxDrawdown"
	RiskProfit        RiskEventType = "profit"
)

// RiskEvent es una notificación de umbral superado emitida por el risk tracker.
// Solo se usa como señal de corroboración: el motor no la usa para calcular.
type RiskEvent struct {
	TrackerID  string        `json:"trackerId"`
	AccountID  string        `json:"accountId"`
	Type       RiskEventType `json:"type"`
	Value      float64       `json:"value"`
	Thresholds []float64     `json:"thresholds"`
	Timestamp  time.Time     `json:"timestamp"`
}

// IsBreach indica si el evento señala un drawdown por encima de su umbral.
func (e RiskEvent) IsBreach() bool {
	if e.Type != RiskDailyDrawdown && e.Type != RiskMaxDrawdown {
		return false
	}
	if len(e.Thresholds) == 0 {
		return true
	}
	for _, th := range e.Thresholds {
		if e.Value >= th {
			return true
		}
	}
	return false
}

// Corroborate contrasta el assessment con los eventos del risk tracker de la cuenta.
// Si el tracker reporta un breach que el motor no ve como FAILED devuelve
// WarnRiskTrackerMismatch. Nunca modifica las métricas.
func Corroborate(a Assessment, events []RiskEvent) []Warning {
	if a.State == StateFailed {
		return nil
	}
	for _, e := range events {
		if e.AccountID != "" && e.AccountID != a.AccountID {
			continue
		}
		if e.IsBreach() {
			return []Warning{WarnRiskTrackerMismatch}
		}
	}
	return nil
}
