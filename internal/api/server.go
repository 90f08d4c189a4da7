// Package api expone los reports del evaluador por HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jpenny18/shockwave-capital-sub003/internal/application/evaluator"
	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultHistoryDays = 30
	shutdownTimeout    = 5 * time.Second
)

// ReportStore es la parte de ports.Storage que necesita la API.
type ReportStore interface {
	LatestReport(ctx context.Context, accountID string) (domain.Report, bool, error)
	LatestReports(ctx context.Context) ([]domain.Report, error)
	ReportHistory(ctx context.Context, accountID string, from, to time.Time) ([]domain.Report, error)
}

// BatchRunner dispara un batch de evaluación bajo demanda.
type BatchRunner interface {
	RunOnce(ctx context.Context) (evaluator.Batch, error)
}

// Server es el servidor HTTP de reporting.
type Server struct {
	router *gin.Engine
	addr   string
	store  ReportStore
	runner BatchRunner
}

// NewServer crea el servidor y registra las rutas.
// runner y gatherer son opcionales: sin ellos no se registran POST /evaluations ni /metrics.
func NewServer(addr string, store ReportStore, runner BatchRunner, gatherer prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{router: r, addr: addr, store: store, runner: runner}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
	r.GET("/reports", s.listReports)

	accounts := r.Group("/accounts/:id")
	{
		accounts.GET("/report", s.getReport)
		accounts.GET("/history", s.getHistory)
	}

	if runner != nil {
		r.POST("/evaluations", s.triggerEvaluation)
	}
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler devuelve el router, para montarlo en tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start sirve HTTP hasta que ctx se cancele y luego hace shutdown ordenado.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server starting", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api.Start: listen %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api.Start: shutdown: %w", err)
	}
	slog.Info("api server stopped")
	return nil
}

// --- handlers ---

func (s *Server) listReports(c *gin.Context) {
	reports, err := s.store.LatestReports(c.Request.Context())
	if err != nil {
		slog.Error("list reports failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reports"})
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (s *Server) getReport(c *gin.Context) {
	id := c.Param("id")
	report, ok, err := s.store.LatestReport(c.Request.Context(), id)
	if err != nil {
		slog.Error("get report failed", "account_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) getHistory(c *gin.Context) {
	id := c.Param("id")

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -defaultHistoryDays)
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = parseQueryTime(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = parseQueryTime(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to before from"})
		return
	}

	history, err := s.store.ReportHistory(c.Request.Context(), id, from, to)
	if err != nil {
		slog.Error("get history failed", "account_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if history == nil {
		history = []domain.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"accountId": id, "reports": history})
}

type batchResponse struct {
	BatchID    string          `json:"batchId"`
	StartedAt  time.Time       `json:"startedAt"`
	DurationMs int64           `json:"durationMs"`
	Failed     int             `json:"failed"`
	Reports    []domain.Report `json:"reports"`
}

func (s *Server) triggerEvaluation(c *gin.Context) {
	batch, err := s.runner.RunOnce(c.Request.Context())
	if err != nil {
		slog.Error("triggered evaluation failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
		return
	}
	c.JSON(http.StatusOK, batchResponse{
		BatchID:    batch.ID,
		StartedAt:  batch.StartedAt,
		DurationMs: batch.Duration.Milliseconds(),
		Failed:     batch.Failed,
		Reports:    batch.Reports,
	})
}

// parseQueryTime acepta RFC3339 o una fecha YYYY-MM-DD (UTC).
func parseQueryTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
