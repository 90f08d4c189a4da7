package risktracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

const (
	// DefaultReconnectDelay es la espera antes de reconectar.
	DefaultReconnectDelay = 5 * time.Second

	// DefaultMaxReconnectAttempts es el máximo de reconexiones seguidas.
	DefaultMaxReconnectAttempts = 10

	// DefaultPingInterval es el intervalo de ping para mantener la conexión.
	DefaultPingInterval = 15 * time.Second

	eventBuffer = 64
)

var (
	// ErrNoURL se devuelve si no hay URL configurada.
	ErrNoURL = errors.New("risktracker: url not configured")
)

// Options configura el Client.
type Options struct {
	URL   string
	Token string

	ReconnectDelay time.Duration
	// MaxReconnectAttempts: 0 = no reconectar, -1 = sin límite.
	MaxReconnectAttempts int
	PingInterval         time.Duration
}

// DefaultOptions devuelve Options con los valores por defecto.
func DefaultOptions(url, token string) Options {
	return Options{
		URL:                  url,
		Token:                token,
		ReconnectDelay:       DefaultReconnectDelay,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		PingInterval:         DefaultPingInterval,
	}
}

// Client consume el stream de eventos del risk tracker externo por websocket.
// Implementa ports.RiskEventSource.
type Client struct {
	opts   Options
	dialer websocket.Dialer
}

// New crea un Client.
func New(opts Options) *Client {
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	return &Client{
		opts:   opts,
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// rawEvent es el mensaje del stream.
type rawEvent struct {
	Type string `json:"type"` // "trackerEvent" | "ping"
	Data struct {
		TrackerID  string    `json:"trackerId"`
		AccountID  string    `json:"accountId"`
		Type       string    `json:"type"`
		Value      float64   `json:"value"`
		Thresholds []float64 `json:"thresholds"`
		Timestamp  time.Time `json:"timestamp"`
	} `json:"data"`
}

// Events conecta al stream y devuelve un canal con los eventos recibidos.
// El canal se cierra cuando ctx se cancela o se agotan las reconexiones.
// El primer dial es síncrono: si falla se devuelve el error.
func (c *Client) Events(ctx context.Context) (<-chan domain.RiskEvent, error) {
	if c.opts.URL == "" {
		return nil, ErrNoURL
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.RiskEvent, eventBuffer)
	go c.run(ctx, conn, out)
	return out, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.opts.Token != "" {
		header.Set("auth-token", c.opts.Token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		return nil, fmt.Errorf("risktracker: dial: %w", err)
	}
	return conn, nil
}

// run lee de la conexión y reconecta mientras queden intentos.
func (c *Client) run(ctx context.Context, conn *websocket.Conn, out chan<- domain.RiskEvent) {
	defer close(out)

	attempts := 0
	for {
		err := c.readLoop(ctx, conn, out)
		conn.Close()
		if ctx.Err() != nil {
			return
		}

		slog.Warn("risk tracker stream disconnected", "err", err)

		for {
			if c.opts.MaxReconnectAttempts >= 0 && attempts >= c.opts.MaxReconnectAttempts {
				slog.Error("risk tracker reconnect attempts exhausted", "attempts", attempts)
				return
			}
			attempts++

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.opts.ReconnectDelay):
			}

			conn, err = c.dial(ctx)
			if err == nil {
				slog.Info("risk tracker stream reconnected", "attempt", attempts)
				attempts = 0
				break
			}
			slog.Warn("risk tracker reconnect failed", "attempt", attempts, "err", err)
		}
	}
}

// readLoop decodifica mensajes hasta error o cancelación.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- domain.RiskEvent) error {
	done := make(chan struct{})
	defer close(done)

	// Cerrar la conexión desbloquea ReadMessage al cancelar ctx.
	go func() {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}

		event, ok := parseEvent(message)
		if !ok {
			continue
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// parseEvent convierte un mensaje en RiskEvent. ok=false para mensajes que no son eventos.
func parseEvent(message []byte) (domain.RiskEvent, bool) {
	var raw rawEvent
	if err := json.Unmarshal(message, &raw); err != nil {
		slog.Debug("invalid risk tracker message", "err", err)
		return domain.RiskEvent{}, false
	}
	if raw.Type != "trackerEvent" || raw.Data.AccountID == "" {
		return domain.RiskEvent{}, false
	}
	return domain.RiskEvent{
		TrackerID:  raw.Data.TrackerID,
		AccountID:  raw.Data.AccountID,
		Type:       domain.RiskEventType(raw.Data.Type),
		Value:      raw.Data.Value,
		Thresholds: raw.Data.Thresholds,
		Timestamp:  raw.Data.Timestamp.UTC(),
	}, true
}
