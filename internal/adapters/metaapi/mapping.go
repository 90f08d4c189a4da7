package metaapi

import (
	"encoding/json"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// nonTradingTypes son depósitos, créditos y ajustes: no cuentan como deals.
var nonTradingTypes = map[string]bool{
	dealTypeBalance:    true,
	dealTypeCredit:     true,
	dealTypeCharge:     true,
	dealTypeCorrection: true,
	dealTypeBonus:      true,
}

// mapDeals convierte los DTOs a domain.Deal descartando operaciones no de trading.
// Los deals con campos ilegibles se mantienen sin esos campos: el Aggregator
// decide si los ignora.
func mapDeals(raw []rawDeal) []domain.Deal {
	deals := make([]domain.Deal, 0, len(raw))
	for _, r := range raw {
		if nonTradingTypes[r.Type] {
			continue
		}
		deals = append(deals, domain.Deal{
			ID:        r.ID,
			Timestamp: parseTime(r.Time),
			Profit:    parseNumber(r.Profit),
			Equity:    parseNumber(r.Equity),
			Symbol:    r.Symbol,
		})
	}
	return deals
}

func parseNumber(n *json.Number) *float64 {
	if n == nil || *n == "" {
		return nil
	}
	v, err := n.Float64()
	if err != nil {
		return nil
	}
	return &v
}

// parseTime acepta los formatos ISO que devuelve la API. Devuelve tiempo cero si falla.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02 15:04:05.000",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// formatTime es el formato de tiempo que espera la API en los paths.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
