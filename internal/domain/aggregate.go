package domain

import (
	"sort"
	"time"
)

// dayLayout es la clave de DailyPnL.
const dayLayout = "2006-01-02"

// TradingDay es el resumen de un día natural (UTC) con al menos un deal.
type TradingDay struct {
	Date      time.Time // medianoche UTC
	PnL       float64
	DealCount int
}

// Aggregation es el resultado de agrupar deals por día.
type Aggregation struct {
	TotalProfit float64
	DailyPnL    map[string]float64 // "2006-01-02" → P&L del día
	TradingDays []TradingDay       // ordenados por fecha
	Included    []Deal             // deals válidos dentro de la ventana, en orden de entrada
	Skipped     int                // deals malformados ignorados
}

// DayKey devuelve la clave de día UTC para t.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Aggregate filtra los deals a la ventana y los agrupa por día natural UTC.
//
// Los deals sin timestamp o sin profit se cuentan en Skipped y no abortan
// el cálculo. TotalProfit es exactamente la suma de los PnL diarios.
func Aggregate(deals []Deal, window Window) Aggregation {
	agg := Aggregation{
		DailyPnL: make(map[string]float64),
		Included: make([]Deal, 0, len(deals)),
	}
	days := make(map[string]*TradingDay)

	for _, d := range deals {
		if !d.Valid() {
			agg.Skipped++
			continue
		}
		if !window.Contains(d.Timestamp) {
			continue
		}

		key := DayKey(d.Timestamp)
		day, ok := days[key]
		if !ok {
			ts := d.Timestamp.UTC()
			day = &TradingDay{Date: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)}
			days[key] = day
		}
		day.PnL += *d.Profit
		day.DealCount++
		agg.Included = append(agg.Included, d)
	}

	agg.TradingDays = make([]TradingDay, 0, len(days))
	for key, day := range days {
		agg.DailyPnL[key] = day.PnL
		agg.TradingDays = append(agg.TradingDays, *day)
	}
	sort.Slice(agg.TradingDays, func(i, j int) bool {
		return agg.TradingDays[i].Date.Before(agg.TradingDays[j].Date)
	})

	// Sumar por día (y no por deal) mantiene TotalProfit == Σ PnL diario.
	for _, day := range agg.TradingDays {
		agg.TotalProfit += day.PnL
	}
	return agg
}

// WorstDailyLoss devuelve el P&L del peor día, o 0 si ningún día es negativo.
func WorstDailyLoss(daily map[string]float64) float64 {
	worst := 0.0
	for _, pnl := range daily {
		if pnl < worst {
			worst = pnl
		}
	}
	return worst
}
