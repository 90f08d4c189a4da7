package domain

import "fmt"

// AccountStatus es el estado persistido de la cuenta en la plataforma.
type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountPassed AccountStatus = "passed"
	AccountFailed AccountStatus = "failed"
)

// State devuelve el estado de evaluación equivalente al status de la cuenta.
func (s AccountStatus) State() State {
	switch s {
	case AccountPassed:
		return StatePassed
	case AccountFailed:
		return StateFailed
	default:
		return StateInProgress
	}
}

// StatusFor devuelve el status de cuenta que corresponde a un estado de evaluación.
func StatusFor(s State) AccountStatus {
	switch s {
	case StatePassed:
		return AccountPassed
	case StateFailed:
		return AccountFailed
	default:
		return AccountActive
	}
}

// Account son los datos base de una cuenta de challenge.
// BaselineBalance es el capital inicial, no el balance vivo.
type Account struct {
	ID              string
	BaselineBalance float64
	ChallengeType   ChallengeType
	Phase           Phase
	Status          AccountStatus
}

// Warning es un aviso que viaja con el resultado hasta el Reporting Layer.
type Warning string

const (
	WarnUnknownChallengeConfig Warning = "UNKNOWN_CHALLENGE_CONFIG"
	WarnDataUnavailable        Warning = "DATA_UNAVAILABLE"
	WarnMalformedDeal          Warning = "MALFORMED_DEAL"
	WarnConnectorUnavailable   Warning = "CONNECTOR_UNAVAILABLE"
	WarnRiskTrackerMismatch    Warning = "RISK_TRACKER_MISMATCH"
)

// Assessment es el resultado completo por cuenta que produce el Assembler.
type Assessment struct {
	EvaluationResult
	AccountID   string
	Equity      float64
	TotalTrades int
	Rules       RuleSet
	Warnings    []Warning
}

// HasWarning indica si el assessment lleva el aviso w.
func (a Assessment) HasWarning(w Warning) bool {
	for _, x := range a.Warnings {
		if x == w {
			return true
		}
	}
	return false
}

// AddWarning añade w si no estaba ya.
func (a *Assessment) AddWarning(w Warning) {
	if !a.HasWarning(w) {
		a.Warnings = append(a.Warnings, w)
	}
}

// Assembler compone Rule Catalog → Aggregator → Drawdown → Evaluator.
// No hace I/O ni lee el reloj: dos llamadas con los mismos datos dan el mismo resultado.
type Assembler struct {
	catalog Catalog
}

// NewAssembler crea un Assembler. Si catalog es nil usa DefaultCatalog.
func NewAssembler(catalog Catalog) *Assembler {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Assembler{catalog: catalog}
}

// Assemble evalúa una cuenta con su historial de deals ya obtenido y ordenado.
//
// Solo devuelve error para violaciones de contrato (deals desordenados,
// baseline no positivo). Todo lo demás se refleja como warnings.
func (a *Assembler) Assemble(account Account, deals []Deal, window Window) (Assessment, error) {
	if account.BaselineBalance <= 0 {
		return Assessment{}, fmt.Errorf("domain.Assemble: account %s: %w", account.ID, ErrNegativeBaseline)
	}

	rules, known := a.catalog.Lookup(account.ChallengeType, account.Phase)

	agg := Aggregate(deals, window)
	dd, err := ComputeDrawdown(agg.Included, account.BaselineBalance)
	if err != nil {
		return Assessment{}, fmt.Errorf("domain.Assemble: account %s: %w", account.ID, err)
	}

	res, err := Evaluate(EvaluationInput{
		TotalProfit:     agg.TotalProfit,
		DailyPnL:        agg.DailyPnL,
		TradingDays:     len(agg.TradingDays),
		MaxDrawdownPct:  dd.MaxDrawdownPct,
		BaselineBalance: account.BaselineBalance,
	}, rules)
	if err != nil {
		return Assessment{}, fmt.Errorf("domain.Assemble: account %s: %w", account.ID, err)
	}
	res.State = ApplyTerminal(account.Status.State(), res.State)

	out := Assessment{
		EvaluationResult: res,
		AccountID:        account.ID,
		Equity:           dd.LastEquity,
		TotalTrades:      len(agg.Included),
		Rules:            rules,
	}
	if !known {
		out.AddWarning(WarnUnknownChallengeConfig)
	}
	if len(agg.Included) == 0 {
		out.AddWarning(WarnDataUnavailable)
	}
	if agg.Skipped > 0 {
		out.AddWarning(WarnMalformedDeal)
	}
	return out, nil
}
