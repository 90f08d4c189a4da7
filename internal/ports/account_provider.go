package ports

import (
	"context"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// AccountProvider lista las cuentas de challenge a evaluar.
type AccountProvider interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}
