package ports

import (
	"context"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// DealProvider es el Trading Data Connector: obtiene el historial de deals de una cuenta.
type DealProvider interface {
	// FetchDeals devuelve los deals de la cuenta en [from, to], ordenados por timestamp.
	// Las implementaciones hacen sus propios retries; el llamador acota el tiempo con ctx.
	FetchDeals(ctx context.Context, accountID string, from, to time.Time) ([]domain.Deal, error)
}
