package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalog_StandardPhases(t *testing.T) {
	c := DefaultCatalog()

	p1, ok := c.Lookup(ChallengeStandard, 1)
	assert.True(t, ok)
	assert.Equal(t, RuleSet{MaxDailyDrawdownPct: 8, MaxDrawdownPct: 15, ProfitTargetPct: 10, MinTradingDays: 4}, p1)

	p2, ok := c.Lookup(ChallengeStandard, 2)
	assert.True(t, ok)
	assert.Equal(t, 5.0, p2.ProfitTargetPct)
	assert.Equal(t, p1.MaxDrawdownPct, p2.MaxDrawdownPct)
	assert.Equal(t, p1.MaxDailyDrawdownPct, p2.MaxDailyDrawdownPct)
}

func TestCatalog_InstantAnyPhase(t *testing.T) {
	c := DefaultCatalog()
	for _, p := range []Phase{0, 1, 2, 7} {
		rules, ok := c.Lookup(ChallengeInstant, p)
		assert.True(t, ok, "phase %d", p)
		assert.Equal(t, 4.0, rules.MaxDailyDrawdownPct)
		assert.Equal(t, 12.0, rules.MaxDrawdownPct)
		assert.Equal(t, 12.0, rules.ProfitTargetPct)
		assert.Equal(t, 5, rules.MinTradingDays)
	}
}

func TestCatalog_NormalizesType(t *testing.T) {
	rules, ok := DefaultCatalog().Lookup(" Standard ", 2)
	assert.True(t, ok)
	assert.Equal(t, 5.0, rules.ProfitTargetPct)
}

func TestCatalog_UnknownFallsBackToStandardPhase1(t *testing.T) {
	c := DefaultCatalog()
	want, _ := c.Lookup(ChallengeStandard, 1)

	rules, ok := c.Lookup("unknown", 1)
	assert.False(t, ok)
	assert.Equal(t, want, rules)

	// fase inexistente de un tipo conocido
	rules, ok = c.Lookup(ChallengeStandard, 3)
	assert.False(t, ok)
	assert.Equal(t, want, rules)
}

func TestCatalog_FallbackWhenCatalogEmpty(t *testing.T) {
	rules, ok := Catalog{}.Lookup(ChallengeStandard, 1)
	assert.False(t, ok)
	assert.Equal(t, 10.0, rules.ProfitTargetPct)
}

func TestCatalog_Register(t *testing.T) {
	c := DefaultCatalog()
	c.Register(RuleKey{Type: "Rapid", Phase: 1}, RuleSet{MaxDailyDrawdownPct: 3, MaxDrawdownPct: 6, ProfitTargetPct: 8, MinTradingDays: 3})

	rules, ok := c.Lookup("rapid", 1)
	assert.True(t, ok)
	assert.Equal(t, 6.0, rules.MaxDrawdownPct)

	// DefaultCatalog devuelve copias independientes
	_, ok = DefaultCatalog().Lookup("rapid", 1)
	assert.False(t, ok)
}
