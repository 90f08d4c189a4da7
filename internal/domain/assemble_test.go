package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardAccount(id string) Account {
	return Account{
		ID:              id,
		BaselineBalance: 50000,
		ChallengeType:   ChallengeStandard,
		Phase:           1,
		Status:          AccountActive,
	}
}

func scenarioADeals() []Deal {
	day := 24 * time.Hour
	return []Deal{
		dealEq("d1", t0, 2000, 52000),
		dealEq("d2", t0.Add(day), -1000, 51000),
		dealEq("d3", t0.Add(2*day), 3000, 54000),
		dealEq("d4", t0.Add(3*day), 1000, 55000),
	}
}

// --- Escenarios ---

func TestAssemble_ScenarioA_Passed(t *testing.T) {
	a := NewAssembler(nil)
	got, err := a.Assemble(standardAccount("acc-a"), scenarioADeals(), Window{})
	require.NoError(t, err)

	assert.InDelta(t, 10.0, got.ProfitPct, 1e-9)
	assert.Equal(t, 4, got.TradingDays)
	assert.InDelta(t, 1.92, got.MaxDrawdownPct, 0.005)
	assert.InDelta(t, 2.0, got.DailyDrawdownPct, 1e-9)
	assert.Equal(t, 100.0, got.Progress.ProfitTarget)
	assert.Equal(t, 100.0, got.Progress.MinTradingDays)
	assert.Equal(t, StatePassed, got.State)
	assert.Equal(t, 55000.0, got.Equity)
	assert.Equal(t, 4, got.TotalTrades)
	assert.Equal(t, "acc-a", got.AccountID)
	assert.Empty(t, got.Warnings)
}

func TestAssemble_ScenarioB_DailyBreachIsFinal(t *testing.T) {
	day := 24 * time.Hour
	deals := []Deal{
		dealEq("open", t0, 0, 50000),
		dealEq("loss", t0.Add(3*time.Hour), -5000, 45000),
		// recuperación posterior
		dealEq("r1", t0.Add(day), 6000, 51000),
		dealEq("r2", t0.Add(2*day), 3000, 54000),
		dealEq("r3", t0.Add(3*day), 2000, 56000),
	}

	got, err := NewAssembler(nil).Assemble(standardAccount("acc-b"), deals, Window{})
	require.NoError(t, err)

	assert.InDelta(t, 10.0, got.DailyDrawdownPct, 1e-9)
	assert.InDelta(t, 12.0, got.ProfitPct, 1e-9)
	assert.Equal(t, StateFailed, got.State)
}

func TestAssemble_ScenarioC_UnknownChallengeFallsBack(t *testing.T) {
	acc := standardAccount("acc-c")
	acc.ChallengeType = "unknown"

	var got Assessment
	require.NotPanics(t, func() {
		var err error
		got, err = NewAssembler(nil).Assemble(acc, scenarioADeals(), Window{})
		require.NoError(t, err)
	})

	assert.True(t, got.HasWarning(WarnUnknownChallengeConfig))
	assert.Equal(t, standardP1, got.Rules)
	assert.Equal(t, StatePassed, got.State)
}

func TestAssemble_ScenarioD_EmptyDeals(t *testing.T) {
	got, err := NewAssembler(nil).Assemble(standardAccount("acc-d"), nil, Window{})
	require.NoError(t, err)

	assert.Zero(t, got.ProfitPct)
	assert.Zero(t, got.TradingDays)
	assert.Zero(t, got.MaxDrawdownPct)
	assert.Equal(t, StateInProgress, got.State)
	assert.True(t, got.HasWarning(WarnDataUnavailable))
	assert.Equal(t, 50000.0, got.Equity)
}

// --- Propiedades y contratos ---

func TestAssemble_Idempotent(t *testing.T) {
	a := NewAssembler(nil)
	acc := standardAccount("acc-i")
	deals := scenarioADeals()

	first, err := a.Assemble(acc, deals, Window{})
	require.NoError(t, err)
	second, err := a.Assemble(acc, deals, Window{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, NewReport(first, t0), NewReport(second, t0))
}

func TestAssemble_WindowExcludesOldDeals(t *testing.T) {
	deals := append([]Deal{dealEq("old", t0.AddDate(0, 0, -40), -9000, 41000)}, scenarioADeals()...)
	w := TrailingWindow(t0.Add(4*24*time.Hour), 30)

	got, err := NewAssembler(nil).Assemble(standardAccount("acc-w"), deals, w)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalTrades)
	assert.Equal(t, StatePassed, got.State)
}

func TestAssemble_MalformedDealsFlagged(t *testing.T) {
	deals := append(scenarioADeals(), Deal{ID: "broken", Timestamp: t0.Add(100 * time.Hour)})

	got, err := NewAssembler(nil).Assemble(standardAccount("acc-m"), deals, Window{})
	require.NoError(t, err)
	assert.True(t, got.HasWarning(WarnMalformedDeal))
	assert.Equal(t, 4, got.TotalTrades)
	assert.Equal(t, StatePassed, got.State)
}

func TestAssemble_TerminalStatusIsKept(t *testing.T) {
	acc := standardAccount("acc-t")
	acc.Status = AccountFailed

	got, err := NewAssembler(nil).Assemble(acc, scenarioADeals(), Window{})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
}

func TestAssemble_ContractViolations(t *testing.T) {
	a := NewAssembler(nil)

	acc := standardAccount("neg")
	acc.BaselineBalance = -1
	_, err := a.Assemble(acc, scenarioADeals(), Window{})
	assert.ErrorIs(t, err, ErrNegativeBaseline)

	deals := scenarioADeals()
	deals[0], deals[3] = deals[3], deals[0]
	_, err = a.Assemble(standardAccount("ooo"), deals, Window{})
	assert.ErrorIs(t, err, ErrDealsOutOfOrder)
}

func TestAccountStatus_Mapping(t *testing.T) {
	assert.Equal(t, StateFailed, AccountFailed.State())
	assert.Equal(t, StatePassed, AccountPassed.State())
	assert.Equal(t, StateInProgress, AccountActive.State())
	assert.Equal(t, StateInProgress, AccountStatus("").State())
	assert.Equal(t, AccountFailed, StatusFor(StateFailed))
	assert.Equal(t, AccountActive, StatusFor(StateInProgress))
}
