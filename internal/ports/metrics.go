package ports

import (
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// MetricsRecorder publica métricas operativas del evaluador.
type MetricsRecorder interface {
	ObserveReport(report domain.Report)
	IncConnectorFailure(accountID string)
	IncRiskEvent(eventType domain.RiskEventType)
	ObserveBatch(duration time.Duration, accounts, failed int)
}
