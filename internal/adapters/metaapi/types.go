package metaapi

import "encoding/json"

// DTOs raw del connector. Solo se usan dentro de este paquete.
// La conversión a domain.Deal se hace en mapping.go.

// Tipos de deal que no son operaciones de trading.
const (
	dealTypeBalance    = "DEAL_TYPE_BALANCE"
	dealTypeCredit     = "DEAL_TYPE_CREDIT"
	dealTypeCharge     = "DEAL_TYPE_CHARGE"
	dealTypeCorrection = "DEAL_TYPE_CORRECTION"
	dealTypeBonus      = "DEAL_TYPE_BONUS"
)

// rawDeal es un deal de GET /users/current/accounts/{id}/history-deals/time/{from}/{to}.
// profit y equity llegan como number o string según la versión del servidor.
type rawDeal struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	EntryType string       `json:"entryType"`
	Symbol    string       `json:"symbol"`
	Time      string       `json:"time"`
	Profit    *json.Number `json:"profit"`
	Equity    *json.Number `json:"equity"` // snapshot tras el deal, si el servidor lo tiene
}
