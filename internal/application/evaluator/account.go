package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// evaluateAccount hace fetch → orden → assemble → corroborate para una cuenta.
//
// Connector caído: último report conocido marcado stale, o un report vacío
// con CONNECTOR_UNAVAILABLE si no hay ninguno. Contrato roto o panic: la
// cuenta se omite del batch y se registra el error.
func (e *Evaluator) evaluateAccount(ctx context.Context, account domain.Account, window domain.Window, now time.Time) (res unitResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("account evaluation panicked", "account_id", account.ID, "panic", r)
			res = unitResult{failed: true}
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	deals, err := e.deals.FetchDeals(fetchCtx, account.ID, window.Start, window.End)
	cancel()
	if err != nil {
		slog.Warn("connector fetch failed", "account_id", account.ID, "err", err)
		e.metrics.IncConnectorFailure(account.ID)
		return unitResult{report: e.fallback(ctx, account, now), ok: true, failed: true}
	}

	if !domain.IsChronological(deals) {
		slog.Debug("deals out of order, sorting", "account_id", account.ID)
		deals = domain.SortDeals(deals)
	}

	assessment, err := e.assembler.Assemble(account, deals, window)
	if err != nil {
		slog.Error("account evaluation rejected", "account_id", account.ID, "err", err)
		return unitResult{failed: true}
	}

	for _, w := range e.corroborate(ctx, assessment, window) {
		assessment.AddWarning(w)
	}

	if len(assessment.Warnings) > 0 {
		slog.Debug("account evaluated with warnings",
			"account_id", account.ID,
			"warnings", assessment.Warnings,
		)
	}

	return unitResult{report: domain.NewReport(assessment, now), ok: true}
}

// corroborate contrasta con los eventos del risk tracker guardados para la ventana.
func (e *Evaluator) corroborate(ctx context.Context, a domain.Assessment, window domain.Window) []domain.Warning {
	if e.storage == nil {
		return nil
	}
	events, err := e.storage.RiskEvents(ctx, a.AccountID, window.Start)
	if err != nil {
		slog.Warn("load risk events failed", "account_id", a.AccountID, "err", err)
		return nil
	}
	warnings := domain.Corroborate(a, events)
	if len(warnings) > 0 {
		slog.Warn("risk tracker reports a breach the engine does not see",
			"account_id", a.AccountID,
			"state", a.State,
			"events", len(events),
		)
	}
	return warnings
}

func (e *Evaluator) fallback(ctx context.Context, account domain.Account, now time.Time) domain.Report {
	if prev, ok := e.previous(ctx, account.ID); ok {
		return prev.MarkStale()
	}
	return domain.UnavailableReport(account, now)
}
