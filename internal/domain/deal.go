package domain

import (
	"sort"
	"time"
)

// Deal es una posición cerrada con su P&L realizado.
// Profit y Equity son opcionales: el connector puede no tenerlos.
type Deal struct {
	ID        string
	Timestamp time.Time
	Profit    *float64 // nil = deal malformado, se ignora
	Equity    *float64 // equity de la cuenta justo después del deal
	Symbol    string
}

// HasEquity indica si el deal trae snapshot de equity.
func (d Deal) HasEquity() bool {
	return d.Equity != nil
}

// Valid devuelve false si al deal le faltan campos obligatorios (timestamp, profit).
func (d Deal) Valid() bool {
	return !d.Timestamp.IsZero() && d.Profit != nil
}

// ProfitValue devuelve el profit o 0 si no existe.
func (d Deal) ProfitValue() float64 {
	if d.Profit == nil {
		return 0
	}
	return *d.Profit
}

// Float devuelve un puntero a v. Útil para construir deals.
func Float(v float64) *float64 {
	return &v
}

// Window es un rango temporal inclusivo [Start, End].
// Un extremo en cero significa "sin límite".
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow devuelve la ventana de los últimos `days` días hasta end.
func TrailingWindow(end time.Time, days int) Window {
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains indica si t cae dentro de la ventana.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// SortDeals devuelve una copia de deals ordenada por timestamp (estable).
func SortDeals(deals []Deal) []Deal {
	out := make([]Deal, len(deals))
	copy(out, deals)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// IsChronological indica si los deals válidos vienen en orden no decreciente.
func IsChronological(deals []Deal) bool {
	var last time.Time
	for _, d := range deals {
		if d.Timestamp.IsZero() {
			continue
		}
		if d.Timestamp.Before(last) {
			return false
		}
		last = d.Timestamp
	}
	return true
}
