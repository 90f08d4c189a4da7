package domain

import (
	"errors"
	"time"
)

// ErrDealsOutOfOrder se devuelve cuando los deals no vienen ordenados por timestamp.
// Es una violación de contrato del llamador: el connector debe ordenar antes.
var ErrDealsOutOfOrder = errors.New("domain: deals out of chronological order")

// EquityPoint es una muestra de la serie de equity con su pico acumulado.
type EquityPoint struct {
	Timestamp   time.Time
	Equity      float64
	Peak        float64
	DrawdownPct float64
}

// Drawdown es el resultado del Drawdown Tracker.
type Drawdown struct {
	MaxDrawdownPct float64
	PeakSeries     []EquityPoint
	LastEquity     float64
	Synthetic      bool // true si la serie se reconstruyó desde baseline + profit acumulado
}

// ComputeDrawdown recorre los deals en orden cronológico manteniendo el pico
// de equity y el máximo drawdown:
//
//	peak     = max(peak, equity)
//	drawdown = (peak - equity) / peak × 100
//
// El pico se inicializa con el primer deal que trae equity, nunca con 0.
// Si ningún deal trae equity se reconstruye una serie sintética
// baseline + profit acumulado y se aplica el mismo algoritmo.
//
// Deals sin timestamp se ignoran. Deals sin equity se ignoran para la serie
// real pero su profit sí cuenta en la sintética.
func ComputeDrawdown(deals []Deal, baselineBalance float64) (Drawdown, error) {
	if !IsChronological(deals) {
		return Drawdown{}, ErrDealsOutOfOrder
	}

	var series []EquityPoint
	synthetic := !anyEquity(deals)

	if synthetic {
		cumulative := 0.0
		for _, d := range deals {
			if !d.Valid() {
				continue
			}
			cumulative += *d.Profit
			series = append(series, EquityPoint{Timestamp: d.Timestamp, Equity: baselineBalance + cumulative})
		}
	} else {
		for _, d := range deals {
			if d.Timestamp.IsZero() || !d.HasEquity() {
				continue
			}
			series = append(series, EquityPoint{Timestamp: d.Timestamp, Equity: *d.Equity})
		}
	}

	result := Drawdown{Synthetic: synthetic, LastEquity: baselineBalance}
	if len(series) == 0 {
		return result, nil
	}

	peak := series[0].Equity
	for i := range series {
		p := &series[i]
		if p.Equity > peak {
			peak = p.Equity
		}
		p.Peak = peak
		if peak > 0 {
			p.DrawdownPct = (peak - p.Equity) / peak * 100
		}
		if p.DrawdownPct > result.MaxDrawdownPct {
			result.MaxDrawdownPct = p.DrawdownPct
		}
	}

	result.PeakSeries = series
	result.LastEquity = series[len(series)-1].Equity
	return result, nil
}

func anyEquity(deals []Deal) bool {
	for _, d := range deals {
		if !d.Timestamp.IsZero() && d.HasEquity() {
			return true
		}
	}
	return false
}
