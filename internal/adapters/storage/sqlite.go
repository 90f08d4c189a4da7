package storage

// sqlite.go: persistencia de cuentas, reports y eventos del risk tracker.
//
// Estrategia:
//   - `accounts`: una fila por cuenta. El status terminal (passed/failed) nunca
//     se pisa desde el seed de config.
//   - `reports`: último report por cuenta (UPSERT). Es lo que sirve la API y el
//     fallback stale cuando el connector falla.
//   - `report_history`: solo se escribe si el report cambió de forma relevante
//     (estado, warnings o > 0.01 en alguna métrica). Cache en memoria para no
//     consultar la DB en cada batch.
//   - Prune automático al arrancar: history > 90d, risk_events > 30d.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id               TEXT PRIMARY KEY,
    baseline_balance REAL    NOT NULL,
    challenge_type   TEXT    NOT NULL,
    phase            INTEGER NOT NULL DEFAULT 1,
    status           TEXT    NOT NULL DEFAULT 'active',
    updated_at       TEXT    NOT NULL
);

-- Último report por cuenta
CREATE TABLE IF NOT EXISTS reports (
    account_id   TEXT PRIMARY KEY,
    batch_id     TEXT NOT NULL,
    state        TEXT NOT NULL,
    stale        INTEGER NOT NULL DEFAULT 0,
    evaluated_at TEXT NOT NULL,
    payload      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS report_history (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id   TEXT NOT NULL,
    batch_id     TEXT NOT NULL,
    state        TEXT NOT NULL,
    evaluated_at TEXT NOT NULL,
    payload      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS risk_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    tracker_id  TEXT NOT NULL,
    account_id  TEXT NOT NULL,
    type        TEXT NOT NULL,
    value       REAL NOT NULL DEFAULT 0,
    thresholds  TEXT NOT NULL DEFAULT '[]',
    occurred_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_account ON report_history(account_id, evaluated_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_account  ON risk_events(account_id, occurred_at DESC);
`

const (
	retentionHistory = 90 * 24 * time.Hour
	retentionEvents  = 30 * 24 * time.Hour
	metricEpsilon    = 0.01

	// timeLayout tiene ancho fijo para que las comparaciones de texto ordenen bien.
	timeLayout = "2006-01-02T15:04:05.000Z"
)

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	cache map[string]domain.Report // accountID → último report en history
	mu    sync.Mutex
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, limpia datos antiguos y precarga la cache.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:    db,
		cache: make(map[string]domain.Report),
	}
	s.pruneOld(context.Background())
	s.warmCache(context.Background())
	return s, nil
}

// --- accounts ---

// UpsertAccount crea o actualiza una cuenta. Un status terminal ya guardado se mantiene.
func (s *SQLiteStorage) UpsertAccount(ctx context.Context, a domain.Account) error {
	status := a.Status
	if status == "" {
		status = domain.AccountActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, baseline_balance, challenge_type, phase, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			baseline_balance = excluded.baseline_balance,
			challenge_type   = excluded.challenge_type,
			phase            = excluded.phase,
			status           = CASE WHEN accounts.status IN ('passed', 'failed')
			                        THEN accounts.status ELSE excluded.status END,
			updated_at       = excluded.updated_at
	`, a.ID, a.BaselineBalance, string(a.ChallengeType), int(a.Phase), string(status), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("storage.UpsertAccount: %s: %w", a.ID, err)
	}
	return nil
}

// UpdateAccountStatus cambia el status de la cuenta.
func (s *SQLiteStorage) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), accountID,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateAccountStatus: %s: %w", accountID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.UpdateAccountStatus: %s: %w", accountID, sql.ErrNoRows)
	}
	return nil
}

// ListAccounts devuelve todas las cuentas ordenadas por id.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, baseline_balance, challenge_type, phase, status FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListAccounts: query: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var ctype, status string
		var phase int
		if err := rows.Scan(&a.ID, &a.BaselineBalance, &ctype, &phase, &status); err != nil {
			return nil, fmt.Errorf("storage.ListAccounts: scan row: %w", err)
		}
		a.ChallengeType = domain.ChallengeType(ctype)
		a.Phase = domain.Phase(phase)
		a.Status = domain.AccountStatus(status)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// --- reports ---

// SaveReports hace upsert del último report por cuenta y añade a history
// los que cambiaron respecto al anterior.
func (s *SQLiteStorage) SaveReports(ctx context.Context, batchID string, reports []domain.Report) error {
	if len(reports) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveReports: begin tx: %w", err)
	}
	defer tx.Rollback()

	latest, err := tx.PrepareContext(ctx, `
		INSERT INTO reports (account_id, batch_id, state, stale, evaluated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			batch_id     = excluded.batch_id,
			state        = excluded.state,
			stale        = excluded.stale,
			evaluated_at = excluded.evaluated_at,
			payload      = excluded.payload
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveReports: prepare latest: %w", err)
	}
	defer latest.Close()

	history, err := tx.PrepareContext(ctx, `
		INSERT INTO report_history (account_id, batch_id, state, evaluated_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveReports: prepare history: %w", err)
	}
	defer history.Close()

	changed := s.filterChanged(reports)

	for _, r := range reports {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("storage.SaveReports: marshal %s: %w", r.AccountID, err)
		}
		stale := 0
		if r.Stale {
			stale = 1
		}
		at := formatTime(r.EvaluatedAt)

		if _, err := latest.ExecContext(ctx, r.AccountID, batchID, string(r.State), stale, at, string(payload)); err != nil {
			return fmt.Errorf("storage.SaveReports: upsert %s: %w", r.AccountID, err)
		}
		if !changed[r.AccountID] {
			continue
		}
		if _, err := history.ExecContext(ctx, r.AccountID, batchID, string(r.State), at, string(payload)); err != nil {
			return fmt.Errorf("storage.SaveReports: history %s: %w", r.AccountID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveReports: commit: %w", err)
	}
	return nil
}

// LatestReport devuelve el último report de la cuenta.
func (s *SQLiteStorage) LatestReport(ctx context.Context, accountID string) (domain.Report, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM reports WHERE account_id = ?`, accountID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, false, nil
	}
	if err != nil {
		return domain.Report{}, false, fmt.Errorf("storage.LatestReport: %s: %w", accountID, err)
	}

	var r domain.Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return domain.Report{}, false, fmt.Errorf("storage.LatestReport: decode %s: %w", accountID, err)
	}
	return r, true, nil
}

// LatestReports devuelve el último report de cada cuenta ordenado por account_id.
func (s *SQLiteStorage) LatestReports(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM reports ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("storage.LatestReports: query: %w", err)
	}
	defer rows.Close()
	return scanReports(rows, "storage.LatestReports")
}

// ReportHistory devuelve los reports de la cuenta en [from, to], más recientes primero.
func (s *SQLiteStorage) ReportHistory(ctx context.Context, accountID string, from, to time.Time) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM report_history
		WHERE account_id = ? AND evaluated_at BETWEEN ? AND ?
		ORDER BY evaluated_at DESC, id DESC
	`, accountID, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("storage.ReportHistory: query: %w", err)
	}
	defer rows.Close()
	return scanReports(rows, "storage.ReportHistory")
}

// --- risk events ---

// SaveRiskEvent persiste un evento del risk tracker.
func (s *SQLiteStorage) SaveRiskEvent(ctx context.Context, e domain.RiskEvent) error {
	thresholds, err := json.Marshal(e.Thresholds)
	if err != nil {
		return fmt.Errorf("storage.SaveRiskEvent: marshal thresholds: %w", err)
	}
	at := e.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_events (tracker_id, account_id, type, value, thresholds, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.TrackerID, e.AccountID, string(e.Type), e.Value, string(thresholds), formatTime(at)); err != nil {
		return fmt.Errorf("storage.SaveRiskEvent: %s: %w", e.AccountID, err)
	}
	return nil
}

// RiskEvents devuelve los eventos de la cuenta desde since, en orden cronológico.
func (s *SQLiteStorage) RiskEvents(ctx context.Context, accountID string, since time.Time) ([]domain.RiskEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tracker_id, account_id, type, value, thresholds, occurred_at
		FROM risk_events
		WHERE account_id = ? AND occurred_at >= ?
		ORDER BY occurred_at, id
	`, accountID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("storage.RiskEvents: query: %w", err)
	}
	defer rows.Close()

	var events []domain.RiskEvent
	for rows.Next() {
		var e domain.RiskEvent
		var etype, thresholds, at string
		if err := rows.Scan(&e.TrackerID, &e.AccountID, &etype, &e.Value, &thresholds, &at); err != nil {
			return nil, fmt.Errorf("storage.RiskEvents: scan row: %w", err)
		}
		e.Type = domain.RiskEventType(etype)
		_ = json.Unmarshal([]byte(thresholds), &e.Thresholds)
		e.Timestamp, _ = time.Parse(timeLayout, at)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// filterChanged devuelve las cuentas cuyo report cambió respecto a la caché,
// y actualiza la caché.
func (s *SQLiteStorage) filterChanged(reports []domain.Report) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make(map[string]bool, len(reports))
	for _, r := range reports {
		if prev, ok := s.cache[r.AccountID]; ok && !reportChanged(prev, r) {
			continue
		}
		changed[r.AccountID] = true
		s.cache[r.AccountID] = r
	}
	return changed
}

// reportChanged indica si r difiere de prev en algo que merezca una fila de history.
func reportChanged(prev, r domain.Report) bool {
	if prev.State != r.State || prev.Stale != r.Stale || len(prev.Warnings) != len(r.Warnings) {
		return true
	}
	for i := range r.Warnings {
		if prev.Warnings[i] != r.Warnings[i] {
			return true
		}
	}
	if prev.Metrics.TotalTrades != r.Metrics.TotalTrades || prev.Metrics.TradingDays != r.Metrics.TradingDays {
		return true
	}
	pairs := [][2]float64{
		{prev.Equity, r.Equity},
		{prev.Metrics.DailyDrawdown, r.Metrics.DailyDrawdown},
		{prev.Metrics.MaxDrawdown, r.Metrics.MaxDrawdown},
		{prev.Metrics.ProfitTarget, r.Metrics.ProfitTarget},
	}
	for _, p := range pairs {
		if math.Abs(p[0]-p[1]) >= metricEpsilon {
			return true
		}
	}
	return false
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	s.db.ExecContext(ctx, `DELETE FROM report_history WHERE evaluated_at < ?`, formatTime(time.Now().Add(-retentionHistory)))
	s.db.ExecContext(ctx, `DELETE FROM risk_events WHERE occurred_at < ?`, formatTime(time.Now().Add(-retentionEvents)))
}

// warmCache precarga la caché con el último report de cada cuenta en history,
// evitando filas redundantes en el primer batch tras un reinicio.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.payload FROM report_history h
		JOIN (SELECT account_id, MAX(id) AS id FROM report_history GROUP BY account_id) last
		  ON h.id = last.id
	`)
	if err != nil {
		return
	}
	defer rows.Close()

	reports, err := scanReports(rows, "storage.warmCache")
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reports {
		s.cache[r.AccountID] = r
	}
}

func scanReports(rows *sql.Rows, op string) ([]domain.Report, error) {
	var reports []domain.Report
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		var r domain.Report
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
