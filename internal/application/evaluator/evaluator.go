package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
	"github.com/jpenny18/shockwave-capital-sub003/internal/ports"
)

const (
	defaultInterval     = 5 * time.Minute
	defaultWindowDays   = 30
	defaultFetchTimeout = 30 * time.Second
)

// ErrNoAccountSource se devuelve si no hay ni AccountProvider ni Storage.
var ErrNoAccountSource = errors.New("evaluator: no account source configured")

// Config contiene la configuración del evaluador.
type Config struct {
	Interval     time.Duration
	Workers      int           // goroutines de evaluación (0 = NumCPU*2)
	WindowDays   int           // ventana trailing de deals
	FetchTimeout time.Duration // límite por cuenta, incluyendo retries del connector
	Once         bool
	Now          func() time.Time
}

// Batch es el resultado de una pasada completa sobre todas las cuentas.
type Batch struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Reports   []domain.Report
	Failed    int // cuentas sin evaluación fresca (connector caído, contrato roto o panic)
}

// Evaluator es el orquestador de los batches de evaluación.
type Evaluator struct {
	cfg       Config
	accounts  ports.AccountProvider
	deals     ports.DealProvider
	storage   ports.Storage
	notifier  ports.Notifier
	metrics   ports.MetricsRecorder
	assembler *domain.Assembler

	batchMu sync.Mutex // un batch a la vez (ticker y API)

	lastMu sync.RWMutex
	last   map[string]domain.Report // último report por cuenta, para stale y transiciones
}

// New crea un Evaluator con todas las dependencias inyectadas.
// storage, notifier y metrics son opcionales. Si accounts es nil se usa storage.
func New(
	cfg Config,
	accounts ports.AccountProvider,
	deals ports.DealProvider,
	storage ports.Storage,
	notifier ports.Notifier,
	metrics ports.MetricsRecorder,
	catalog domain.Catalog,
) *Evaluator {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = defaultWindowDays
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if accounts == nil && storage != nil {
		accounts = storage
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Evaluator{
		cfg:       cfg,
		accounts:  accounts,
		deals:     deals,
		storage:   storage,
		notifier:  notifier,
		metrics:   metrics,
		assembler: domain.NewAssembler(catalog),
		last:      make(map[string]domain.Report),
	}
}

// Run ejecuta batches cada cfg.Interval hasta que el contexto se cancele.
// Si cfg.Once está activo, solo ejecuta uno.
func (e *Evaluator) Run(ctx context.Context) error {
	slog.Info("evaluation loop starting",
		"interval", e.cfg.Interval,
		"once", e.cfg.Once,
		"workers", e.cfg.Workers,
		"window_days", e.cfg.WindowDays,
	)

	if _, err := e.RunOnce(ctx); err != nil {
		slog.Error("evaluation batch failed", "err", err)
		if e.cfg.Once {
			return err
		}
	}

	if e.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("evaluator stopped")
			return nil
		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				slog.Error("evaluation batch failed", "err", err)
			}
		}
	}
}

// RunOnce evalúa todas las cuentas, persiste, notifica y devuelve el batch.
// Solo devuelve error si no se pudo listar las cuentas: los fallos por
// cuenta quedan aislados en su report.
func (e *Evaluator) RunOnce(ctx context.Context) (Batch, error) {
	e.batchMu.Lock()
	defer e.batchMu.Unlock()

	if e.accounts == nil {
		return Batch{}, ErrNoAccountSource
	}

	start := time.Now()
	now := e.cfg.Now().UTC()
	batch := Batch{ID: uuid.New().String(), StartedAt: now}

	accounts, err := e.accounts.ListAccounts(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("evaluator.RunOnce: list accounts: %w", err)
	}

	window := domain.TrailingWindow(now, e.cfg.WindowDays)
	results := e.evaluateAccountsConcurrent(ctx, accounts, window, now)

	byID := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	batch.Reports = make([]domain.Report, 0, len(results))
	for _, r := range results {
		if r.failed {
			batch.Failed++
		}
		if r.ok {
			batch.Reports = append(batch.Reports, r.report)
		}
	}
	sort.Slice(batch.Reports, func(i, j int) bool {
		return batch.Reports[i].AccountID < batch.Reports[j].AccountID
	})

	e.persist(ctx, batch, byID)
	e.emitTransitions(batch.Reports)

	for _, r := range batch.Reports {
		e.metrics.ObserveReport(r)
	}

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, batch.Reports); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	e.remember(batch.Reports)

	batch.Duration = time.Since(start)
	e.metrics.ObserveBatch(batch.Duration, len(accounts), batch.Failed)

	passed, failed := countTerminal(batch.Reports)
	slog.Info("evaluation batch complete",
		"batch_id", batch.ID,
		"accounts", len(accounts),
		"reports", len(batch.Reports),
		"unavailable", batch.Failed,
		"passed", passed,
		"failed", failed,
		"duration", batch.Duration.Round(time.Millisecond),
	)
	return batch, nil
}

// persist guarda los reports y actualiza el status de las cuentas que
// llegaron a un estado terminal en este batch.
func (e *Evaluator) persist(ctx context.Context, batch Batch, accounts map[string]domain.Account) {
	if e.storage == nil {
		return
	}

	if err := e.storage.SaveReports(ctx, batch.ID, batch.Reports); err != nil {
		slog.Warn("storage error", "batch_id", batch.ID, "err", err)
	}

	for _, r := range batch.Reports {
		if r.Stale || !r.State.Terminal() {
			continue
		}
		acc, ok := accounts[r.AccountID]
		if !ok || acc.Status.State() == r.State {
			continue
		}
		if err := e.storage.UpdateAccountStatus(ctx, r.AccountID, domain.StatusFor(r.State)); err != nil {
			slog.Warn("account status update failed", "account_id", r.AccountID, "err", err)
		}
	}
}

// emitTransitions registra las cuentas que pasan a PASSED o FAILED respecto al batch anterior.
func (e *Evaluator) emitTransitions(reports []domain.Report) {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()

	for _, r := range reports {
		if !r.State.Terminal() {
			continue
		}
		if prev, ok := e.last[r.AccountID]; ok && prev.State == r.State {
			continue
		}

		attrs := []any{
			"account_id", r.AccountID,
			"profit_pct", r.Metrics.ProfitTarget,
			"max_drawdown_pct", r.Metrics.MaxDrawdown,
			"daily_drawdown_pct", r.Metrics.DailyDrawdown,
			"trading_days", r.Metrics.TradingDays,
		}
		if r.State == domain.StateFailed {
			slog.Warn("challenge failed", attrs...)
		} else {
			slog.Info("challenge passed", attrs...)
		}
	}
}

func (e *Evaluator) remember(reports []domain.Report) {
	e.lastMu.Lock()
	defer e.lastMu.Unlock()
	for _, r := range reports {
		e.last[r.AccountID] = r
	}
}

// previous devuelve el último report conocido de la cuenta: memoria primero, luego storage.
func (e *Evaluator) previous(ctx context.Context, accountID string) (domain.Report, bool) {
	e.lastMu.RLock()
	r, ok := e.last[accountID]
	e.lastMu.RUnlock()
	if ok {
		return r, true
	}
	if e.storage == nil {
		return domain.Report{}, false
	}
	r, ok, err := e.storage.LatestReport(ctx, accountID)
	if err != nil {
		slog.Warn("load previous report failed", "account_id", accountID, "err", err)
		return domain.Report{}, false
	}
	return r, ok
}

func countTerminal(reports []domain.Report) (passed, failed int) {
	for _, r := range reports {
		switch r.State {
		case domain.StatePassed:
			passed++
		case domain.StateFailed:
			failed++
		}
	}
	return
}

type nopMetrics struct{}

func (nopMetrics) ObserveReport(domain.Report) {}
func (nopMetrics) IncConnectorFailure(string) {}
func (nopMetrics) IncRiskEvent(domain.RiskEventType) {}
func (nopMetrics) ObserveBatch(time.Duration, int, int) {}
