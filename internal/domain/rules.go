package domain

import (
	"log/slog"
	"strings"
)

// ChallengeType identifica el tipo de challenge de una cuenta.
type ChallengeType string

const (
	ChallengeStandard ChallengeType = "standard"
	ChallengeInstant  ChallengeType = "instant"
)

// Phase es la fase del challenge (1, 2, ...).
type Phase int

// PhaseAny marca una entrada del catálogo válida para cualquier fase.
const PhaseAny Phase = 0

// RuleSet son los umbrales de un challenge. Todos los porcentajes son
// números planos (8 = 8%).
type RuleSet struct {
	MaxDailyDrawdownPct float64 `json:"maxDailyDrawdownPct" yaml:"max_daily_drawdown_pct"`
	MaxDrawdownPct      float64 `json:"maxDrawdownPct" yaml:"max_drawdown_pct"`
	ProfitTargetPct     float64 `json:"profitTargetPct" yaml:"profit_target_pct"`
	MinTradingDays      int     `json:"minTradingDays" yaml:"min_trading_days"`
}

// RuleKey indexa el catálogo.
type RuleKey struct {
	Type  ChallengeType
	Phase Phase
}

// Catalog mapea (tipo, fase) → RuleSet.
type Catalog map[RuleKey]RuleSet

// fallbackKey es la entrada usada cuando la combinación no existe.
var fallbackKey = RuleKey{Type: ChallengeStandard, Phase: 1}

// DefaultCatalog devuelve la tabla de reglas de producción.
// Cada llamada devuelve una copia nueva, así que el llamador puede registrar
// tipos adicionales sin afectar a otros catálogos.
func DefaultCatalog() Catalog {
	return Catalog{
		{ChallengeStandard, 1}: {MaxDailyDrawdownPct: 8, MaxDrawdownPct: 15, ProfitTargetPct: 10, MinTradingDays: 4},
		{ChallengeStandard, 2}: {MaxDailyDrawdownPct: 8, MaxDrawdownPct: 15, ProfitTargetPct: 5, MinTradingDays: 4},
		{ChallengeInstant, PhaseAny}: {MaxDailyDrawdownPct: 4, MaxDrawdownPct: 12, ProfitTargetPct: 12, MinTradingDays: 5},
	}
}

// Register añade (o reemplaza) una entrada del catálogo.
func (c Catalog) Register(key RuleKey, rules RuleSet) {
	key.Type = normalizeType(key.Type)
	c[key] = rules
}

// Lookup devuelve las reglas para (tipo, fase). Busca primero la clave exacta
// y después la entrada PhaseAny del tipo.
//
// Si no hay entrada devuelve las reglas de standard fase 1 y ok=false.
// Nunca hace panic: una cuenta mal configurada no debe tumbar un batch.
func (c Catalog) Lookup(t ChallengeType, p Phase) (RuleSet, bool) {
	t = normalizeType(t)
	if rules, ok := c[RuleKey{Type: t, Phase: p}]; ok {
		return rules, true
	}
	if rules, ok := c[RuleKey{Type: t, Phase: PhaseAny}]; ok {
		return rules, true
	}

	slog.Warn("unknown challenge config, falling back to standard phase 1",
		"challenge_type", string(t),
		"phase", int(p),
	)

	if rules, ok := c[fallbackKey]; ok {
		return rules, false
	}
	return DefaultCatalog()[fallbackKey], false
}

func normalizeType(t ChallengeType) ChallengeType {
	return ChallengeType(strings.ToLower(strings.TrimSpace(string(t))))
}
