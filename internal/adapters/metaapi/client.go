package metaapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://mt-client-api-v1.london.agiliumtrade.ai"

	// Rate limit conservador: la API permite ~1000 req/min por token.
	defaultRatePerSec = 10
	defaultBurst      = 5

	defaultMaxRetries = 3
	baseRetryWait     = 500 * time.Millisecond
)

// ErrNotFound se devuelve cuando la cuenta no existe o no está desplegada.
var ErrNotFound = errors.New("metaapi: account not found")

// Config configura el Client.
type Config struct {
	BaseURL     string
	Token       string
	MaxRetries  int           // reintentos tras el primer intento (0 = default)
	RatePerSec  float64       // 0 = default
	HTTPTimeout time.Duration // timeout por request individual (0 = 10s)
	RetryWait   time.Duration // espera base del backoff (0 = 500ms)
}

// Client es el HTTP client del Trading Data Connector con rate limiting y retries.
type Client struct {
	http       *http.Client
	baseURL    string
	token      string
	maxRetries int
	retryWait  time.Duration
	limiter    *rate.Limiter
}

// NewClient crea un Client. Los campos vacíos de cfg toman valores por defecto.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = baseRetryWait
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), defaultBurst),
	}
}

// get hace un GET autenticado con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("auth-token", c.token)
		}
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
// Reintenta errores de red, 429 y 5xx; un 4xx es definitivo.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			if attempt == c.maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by connector API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, c.maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return ErrNotFound
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", c.maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
