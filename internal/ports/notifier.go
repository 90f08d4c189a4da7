package ports

import (
	"context"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// Notifier (Reporting Layer) presenta los reports de un batch.
type Notifier interface {
	Notify(ctx context.Context, reports []domain.Report) error
}
