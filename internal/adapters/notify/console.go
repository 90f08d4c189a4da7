package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el output en el modo configurado.
func (c *Console) Notify(_ context.Context, reports []domain.Report) error {
	if len(reports) == 0 {
		fmt.Fprintf(c.out, "[%s] no accounts evaluated\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(reports)
	} else {
		c.printCompact(reports)
	}
	return nil
}

// printCompact imprime el resumen del batch en una línea y las cuentas terminales o con avisos.
func (c *Console) printCompact(reports []domain.Report) {
	now := time.Now().Format("15:04:05")
	inProgress, passed, failed := countByState(reports)
	stale := countStale(reports)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d accts → run:%d pass:%d fail:%d stale:%d",
		now, len(reports), inProgress, passed, failed, stale)

	shown := 0
	for _, r := range reports {
		if shown >= 4 {
			break
		}
		if r.State == domain.StateInProgress && len(r.Warnings) == 0 {
			continue
		}
		fmt.Fprintf(&sb, " | %s %s pnl%.2f%% dd%.2f%%",
			stateIcon(r.State), compactName(r.AccountID, 16),
			r.Metrics.ProfitTarget, r.Metrics.MaxDrawdown)
		if len(r.Warnings) > 0 {
			fmt.Fprintf(&sb, " !%s", r.Warnings[0])
		}
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa del batch.
func (c *Console) printFull(reports []domain.Report) {
	now := time.Now().Format("15:04:05")
	inProgress, passed, failed := countByState(reports)

	fmt.Fprintf(c.out, "\n[%s] %d accounts — run:%d pass:%d fail:%d\n",
		now, len(reports), inProgress, passed, failed)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Account", "State", "Equity", "Profit%", "MaxDD%", "DailyDD%", "Days", "Trades", "Prog P/DD/D", "Warnings")

	for i, r := range reports {
		account := truncate(r.AccountID, 24)
		if r.Stale {
			account += " (stale)"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			account,
			string(r.State),
			fmt.Sprintf("$%.2f", r.Equity),
			fmt.Sprintf("%.2f", r.Metrics.ProfitTarget),
			fmt.Sprintf("%.2f", r.Metrics.MaxDrawdown),
			fmt.Sprintf("%.2f", r.Metrics.DailyDrawdown),
			fmt.Sprintf("%d", r.Metrics.TradingDays),
			fmt.Sprintf("%d", r.Metrics.TotalTrades),
			fmt.Sprintf("%.0f/%.0f/%.0f", r.Progress.ProfitTarget, r.Progress.MaxDrawdown, r.Progress.MinTradingDays),
			warningsLabel(r.Warnings),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Prog P/DD/D = progreso (0-100) hacia profit target / margen de drawdown / días mínimos")
}

// --- helpers ---

func countByState(reports []domain.Report) (inProgress, passed, failed int) {
	for _, r := range reports {
		switch r.State {
		case domain.StateInProgress:
			inProgress++
		case domain.StatePassed:
			passed++
		case domain.StateFailed:
			failed++
		}
	}
	return
}

func countStale(reports []domain.Report) int {
	n := 0
	for _, r := range reports {
		if r.Stale {
			n++
		}
	}
	return n
}

func stateIcon(s domain.State) string {
	switch s {
	case domain.StatePassed:
		return "[OK]"
	case domain.StateFailed:
		return "[X]"
	default:
		return "[~]"
	}
}

func warningsLabel(ws []domain.Warning) string {
	if len(ws) == 0 {
		return "-"
	}
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = string(w)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "…"
}
