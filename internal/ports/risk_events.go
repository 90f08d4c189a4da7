package ports

import (
	"context"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// RiskEventSource entrega los eventos del risk tracker externo.
type RiskEventSource interface {
	// Events devuelve un canal que se cierra cuando ctx termina o el stream se corta.
	Events(ctx context.Context) (<-chan domain.RiskEvent, error)
}
