package evaluator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpenny18/shockwave-capital-sub003/internal/ports"
)

// ConsumeRiskEvents guarda los eventos del risk tracker hasta que el stream se cierre.
// Los eventos solo se usan para corroborar: nunca cambian las métricas.
func (e *Evaluator) ConsumeRiskEvents(ctx context.Context, source ports.RiskEventSource) error {
	events, err := source.Events(ctx)
	if err != nil {
		return fmt.Errorf("evaluator.ConsumeRiskEvents: subscribe: %w", err)
	}

	received := 0
	for event := range events {
		received++
		e.metrics.IncRiskEvent(event.Type)

		if event.IsBreach() {
			slog.Warn("risk tracker breach event",
				"account_id", event.AccountID,
				"tracker_id", event.TrackerID,
				"type", event.Type,
				"value", event.Value,
			)
		}

		if e.storage == nil {
			continue
		}
		if err := e.storage.SaveRiskEvent(ctx, event); err != nil {
			slog.Warn("storage error", "account_id", event.AccountID, "err", err)
		}
	}

	slog.Info("risk tracker stream closed", "events", received)
	return nil
}
