package domain

import (
	"errors"
	"math"
)

// ErrNegativeBaseline se devuelve si el baseline no es positivo.
var ErrNegativeBaseline = errors.New("domain: baseline balance must be positive")

// State es el estado de evaluación del challenge.
// PASSED y FAILED son terminales.
type State string

const (
	StateInProgress State = "IN_PROGRESS"
	StatePassed     State = "PASSED"
	StateFailed     State = "FAILED"
)

// Terminal indica si el estado ya no puede cambiar.
func (s State) Terminal() bool {
	return s == StatePassed || s == StateFailed
}

// Progress es el avance normalizado (0–100) por dimensión de regla.
type Progress struct {
	ProfitTarget   float64 `json:"profitTarget"`
	MaxDrawdown    float64 `json:"maxDrawdown"` // margen restante, no drawdown bruto
	MinTradingDays float64 `json:"minTradingDays"`
}

// EvaluationResult contiene las métricas de cumplimiento a precisión completa.
type EvaluationResult struct {
	ProfitPct        float64
	MaxDrawdownPct   float64
	DailyDrawdownPct float64
	TradingDays      int
	Progress         Progress
	State            State
}

// EvaluationInput agrupa las métricas agregadas que necesita Evaluate.
type EvaluationInput struct {
	TotalProfit     float64
	DailyPnL        map[string]float64
	TradingDays     int
	MaxDrawdownPct  float64
	BaselineBalance float64
}

// Evaluate combina las métricas con el RuleSet y produce progreso y estado.
//
// Los breaches tienen prioridad: un día o un drawdown total por encima del
// umbral es FAILED aunque el objetivo de profit se cumpla a la vez.
func Evaluate(in EvaluationInput, rules RuleSet) (EvaluationResult, error) {
	if in.BaselineBalance <= 0 {
		return EvaluationResult{}, ErrNegativeBaseline
	}

	profitPct := in.TotalProfit / in.BaselineBalance * 100
	dailyDD := math.Abs(WorstDailyLoss(in.DailyPnL)) / in.BaselineBalance * 100

	res := EvaluationResult{
		ProfitPct:        profitPct,
		MaxDrawdownPct:   in.MaxDrawdownPct,
		DailyDrawdownPct: dailyDD,
		TradingDays:      in.TradingDays,
		Progress: Progress{
			ProfitTarget:   ratioPct(profitPct, rules.ProfitTargetPct),
			MaxDrawdown:    100 - ratioPct(in.MaxDrawdownPct, rules.MaxDrawdownPct),
			MinTradingDays: ratioPct(float64(in.TradingDays), float64(rules.MinTradingDays)),
		},
	}

	switch {
	case in.MaxDrawdownPct > rules.MaxDrawdownPct || dailyDD > rules.MaxDailyDrawdownPct:
		res.State = StateFailed
	case profitPct >= rules.ProfitTargetPct && in.TradingDays >= rules.MinTradingDays:
		res.State = StatePassed
	default:
		res.State = StateInProgress
	}
	return res, nil
}

// ZeroResult es el resultado de una cuenta sin datos: todo a cero, IN_PROGRESS.
func ZeroResult(rules RuleSet) EvaluationResult {
	res, _ := Evaluate(EvaluationInput{BaselineBalance: 1}, rules)
	res.State = StateInProgress
	return res
}

// ApplyTerminal mantiene un estado terminal previo.
func ApplyTerminal(prev, next State) State {
	if prev.Terminal() {
		return prev
	}
	return next
}

// ratioPct devuelve value/threshold×100 acotado a [0, 100].
// Un umbral <= 0 se considera ya cumplido.
func ratioPct(value, threshold float64) float64 {
	if threshold <= 0 {
		return 100
	}
	return clamp(value/threshold*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}
