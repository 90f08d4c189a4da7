package evaluator

// concurrent.go: worker pool para evaluar cuentas en paralelo.
//
// Cada cuenta es una unidad independiente: su fetch, su timeout y sus fallos
// no afectan al resto. No hay orden entre cuentas; RunOnce ordena al final.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

// unitResult es el resultado de evaluar una cuenta.
type unitResult struct {
	report domain.Report
	ok     bool // false = la cuenta no produce report en este batch
	failed bool // true = no hubo evaluación fresca
}

// evaluateAccountsConcurrent evalúa todas las cuentas usando un worker pool.
// Si cfg.Workers <= 0 usa runtime.NumCPU() × 2: el trabajo es I/O bound.
func (e *Evaluator) evaluateAccountsConcurrent(
	ctx context.Context,
	accounts []domain.Account,
	window domain.Window,
	now time.Time,
) []unitResult {
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(accounts) {
		workers = len(accounts)
	}

	workCh := make(chan domain.Account, len(accounts))
	resultCh := make(chan unitResult, len(accounts))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for account := range workCh {
				resultCh <- e.evaluateAccount(ctx, account, window, now)
			}
		}()
	}

	for _, account := range accounts {
		workCh <- account
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]unitResult, 0, len(accounts))
	for r := range resultCh {
		results = append(results, r)
	}

	slog.Debug("concurrent evaluation complete",
		"accounts", len(accounts),
		"results", len(results),
		"workers", workers,
	)
	return results
}
