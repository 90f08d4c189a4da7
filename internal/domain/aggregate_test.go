package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func deal(id string, at time.Time, profit float64) Deal {
	return Deal{ID: id, Timestamp: at, Profit: Float(profit)}
}

func dealEq(id string, at time.Time, profit, equity float64) Deal {
	return Deal{ID: id, Timestamp: at, Profit: Float(profit), Equity: Float(equity)}
}

func TestAggregate_BucketsByUTCDay(t *testing.T) {
	madrid := time.FixedZone("CET", 3600)
	deals := []Deal{
		deal("1", t0, 100),
		deal("2", t0.Add(2*time.Hour), -40),
		// 00:30 en CET = 23:30 UTC del día anterior → mismo día que t0
		deal("3", time.Date(2026, 3, 3, 0, 30, 0, 0, madrid), 10),
		deal("4", t0.Add(24*time.Hour), 50),
	}

	agg := Aggregate(deals, Window{})

	require.Len(t, agg.TradingDays, 2)
	assert.Equal(t, "2026-03-02", DayKey(agg.TradingDays[0].Date))
	assert.Equal(t, 3, agg.TradingDays[0].DealCount)
	assert.InDelta(t, 70, agg.TradingDays[0].PnL, 1e-9)
	assert.Equal(t, 1, agg.TradingDays[1].DealCount)
	assert.InDelta(t, 120, agg.TotalProfit, 1e-9)
	assert.InDelta(t, 70, agg.DailyPnL["2026-03-02"], 1e-9)
	assert.Equal(t, time.UTC, agg.TradingDays[0].Date.Location())
}

func TestAggregate_SkipsMalformed(t *testing.T) {
	deals := []Deal{
		deal("1", t0, 100),
		{ID: "no-profit", Timestamp: t0.Add(time.Hour)},
		{ID: "no-time", Profit: Float(500)},
		deal("4", t0.Add(2*time.Hour), 25),
	}

	agg := Aggregate(deals, Window{})
	assert.Equal(t, 2, agg.Skipped)
	assert.Len(t, agg.Included, 2)
	assert.InDelta(t, 125, agg.TotalProfit, 1e-9)
}

func TestAggregate_WindowIsInclusive(t *testing.T) {
	w := Window{Start: t0, End: t0.Add(48 * time.Hour)}
	deals := []Deal{
		deal("early", t0.Add(-time.Second), 1000),
		deal("start", t0, 1),
		deal("mid", t0.Add(24*time.Hour), 2),
		deal("end", t0.Add(48*time.Hour), 3),
		deal("late", t0.Add(48*time.Hour+time.Second), 1000),
	}

	agg := Aggregate(deals, w)
	assert.Len(t, agg.Included, 3)
	assert.InDelta(t, 6, agg.TotalProfit, 1e-9)
	assert.Len(t, agg.TradingDays, 3)
}

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil, Window{})
	assert.Zero(t, agg.TotalProfit)
	assert.Empty(t, agg.TradingDays)
	assert.Empty(t, agg.DailyPnL)
}

func TestTrailingWindow(t *testing.T) {
	w := TrailingWindow(t0, 30)
	assert.Equal(t, t0.AddDate(0, 0, -30), w.Start)
	assert.True(t, w.Contains(t0))
	assert.False(t, w.Contains(t0.AddDate(0, 0, -31)))
}

func TestAggregate_DailySumEqualsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		n := rng.Intn(60)
		deals := make([]Deal, 0, n)
		at := t0
		for i := 0; i < n; i++ {
			at = at.Add(time.Duration(rng.Intn(20)) * time.Hour)
			deals = append(deals, deal("", at, rng.NormFloat64()*1000))
		}

		agg := Aggregate(deals, Window{})
		sum := 0.0
		count := 0
		for _, d := range agg.TradingDays {
			sum += d.PnL
			count += d.DealCount
		}
		assert.Equal(t, agg.TotalProfit, sum, "run %d", run)
		assert.Equal(t, len(agg.Included), count)
	}
}

func TestWorstDailyLoss(t *testing.T) {
	assert.Equal(t, 0.0, WorstDailyLoss(nil))
	assert.Equal(t, 0.0, WorstDailyLoss(map[string]float64{"a": 10, "b": 0}))
	assert.Equal(t, -300.0, WorstDailyLoss(map[string]float64{"a": -100, "b": -300, "c": 50}))
}
