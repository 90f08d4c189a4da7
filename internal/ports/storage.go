package ports

import (
	"context"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// Storage persiste cuentas, reports y eventos del risk tracker.
type Storage interface {
	AccountProvider

	// UpsertAccount crea o actualiza una cuenta (baseline, tipo, fase).
	// No sobreescribe un status terminal.
	UpsertAccount(ctx context.Context, account domain.Account) error

	// UpdateAccountStatus cambia el status de la cuenta.
	UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus) error

	// SaveReports persiste los reports de un batch.
	SaveReports(ctx context.Context, batchID string, reports []domain.Report) error

	// LatestReport devuelve el último report guardado de la cuenta (ok=false si no hay).
	LatestReport(ctx context.Context, accountID string) (domain.Report, bool, error)

	// LatestReports devuelve el último report de cada cuenta.
	LatestReports(ctx context.Context) ([]domain.Report, error)

	// ReportHistory devuelve los reports de la cuenta en el rango dado, más recientes primero.
	ReportHistory(ctx context.Context, accountID string, from, to time.Time) ([]domain.Report, error)

	// SaveRiskEvent persiste un evento del risk tracker.
	SaveRiskEvent(ctx context.Context, event domain.RiskEvent) error

	// RiskEvents devuelve los eventos de la cuenta desde since.
	RiskEvents(ctx context.Context, accountID string, since time.Time) ([]domain.RiskEvent, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
