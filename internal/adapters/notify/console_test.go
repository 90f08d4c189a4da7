package notify_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/adapters/notify"
	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeReport(id string, state domain.State, warnings ...domain.Warning) domain.Report {
	return domain.Report{
		AccountID: id,
		Equity:    51000,
		Metrics: domain.ReportMetrics{
			DailyDrawdown: 0,
			MaxDrawdown:   1.92,
			ProfitTarget:  2,
			TotalTrades:   3,
			TradingDays:   3,
		},
		Progress:    domain.Progress{ProfitTarget: 20, MaxDrawdown: 87.18, MinTradingDays: 75},
		State:       state,
		Warnings:    warnings,
		EvaluatedAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestConsole_Notify_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	reports := []domain.Report{
		makeReport("acc-1", domain.StateInProgress),
		makeReport("acc-2", domain.StateFailed, domain.WarnRiskTrackerMismatch),
	}

	err := n.Notify(context.Background(), reports)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "acc-1")
	assert.Contains(t, out, "acc-2")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "1.92")
	assert.Contains(t, out, "RISK_TRACKER_MISMATCH")
	assert.Contains(t, out, "run:1 pass:0 fail:1")
}

func TestConsole_Notify_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	stale := makeReport("acc-3", domain.StateInProgress).MarkStale()
	reports := []domain.Report{
		makeReport("acc-1", domain.StateInProgress),
		makeReport("acc-2", domain.StatePassed),
		stale,
	}

	err := n.Notify(context.Background(), reports)
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"), "compact mode prints a single line")
	assert.Contains(t, out, "3 accts")
	assert.Contains(t, out, "stale:1")
	assert.Contains(t, out, "[OK] acc-2")
	assert.Contains(t, out, "!CONNECTOR_UNAVAILABLE")
	assert.NotContains(t, out, "acc-1", "healthy in-progress accounts are not listed")
}

func TestConsole_Notify_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	err := n.Notify(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no accounts evaluated")
}

func TestConsole_Notify_LongAccountTruncated(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	longID := strings.Repeat("A", 40)
	err := n.Notify(context.Background(), []domain.Report{makeReport(longID, domain.StateInProgress)})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "...")
}

func TestJSONWriter_Notify(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewJSONWriter(&buf)

	reports := []domain.Report{
		makeReport("acc-1", domain.StateInProgress),
		makeReport("acc-2", domain.StatePassed),
	}
	require.NoError(t, n.Notify(context.Background(), reports))

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "acc-1", lines[0]["accountId"])
	assert.Equal(t, "PASSED", lines[1]["state"])
	progress := lines[0]["progress"].(map[string]any)
	assert.Equal(t, 87.18, progress["maxDrawdown"])
}
