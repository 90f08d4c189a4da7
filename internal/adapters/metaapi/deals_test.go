package metaapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/adapters/metaapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dealsFixture = `[
  {"id":"3","type":"DEAL_TYPE_SELL","entryType":"DEAL_ENTRY_OUT","symbol":"EURUSD","time":"2026-03-03T09:00:00.000Z","profit":-1000,"equity":51000},
  {"id":"1","type":"DEAL_TYPE_BALANCE","time":"2026-03-01T00:00:00.000Z","profit":50000},
  {"id":"2","type":"DEAL_TYPE_BUY","entryType":"DEAL_ENTRY_OUT","symbol":"XAUUSD","time":"2026-03-02T09:00:00Z","profit":"2000","equity":"52000"},
  {"id":"4","type":"DEAL_TYPE_BUY","entryType":"DEAL_ENTRY_IN","symbol":"EURUSD","time":"2026-03-04T09:00:00.000Z"}
]`

func newTestClient(srv *httptest.Server, retries int) *metaapi.Client {
	return metaapi.NewClient(metaapi.Config{
		BaseURL:    srv.URL,
		Token:      "test-token",
		MaxRetries: retries,
		RatePerSec: 1000,
		RetryWait:  time.Millisecond,
	})
}

func TestFetchDeals_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/users/current/accounts/acc-1/history-deals/time/"))
		assert.Equal(t, "test-token", r.Header.Get("auth-token"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(dealsFixture))
	}))
	defer srv.Close()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	deals, err := newTestClient(srv, 1).FetchDeals(context.Background(), "acc-1", from, from.AddDate(0, 0, 30))
	require.NoError(t, err)

	// el depósito (BALANCE) se descarta y el resto llega ordenado
	require.Len(t, deals, 3)
	assert.Equal(t, "2", deals[0].ID)
	assert.Equal(t, "3", deals[1].ID)
	assert.Equal(t, "4", deals[2].ID)

	require.NotNil(t, deals[0].Profit)
	assert.Equal(t, 2000.0, *deals[0].Profit)
	require.NotNil(t, deals[0].Equity)
	assert.Equal(t, 52000.0, *deals[0].Equity)
	assert.Equal(t, "XAUUSD", deals[0].Symbol)

	assert.Nil(t, deals[2].Profit, "entry deal without profit stays malformed")
	assert.Nil(t, deals[2].Equity)
}

func TestFetchDeals_Paginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			page := make([]map[string]any, 1000)
			base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			for i := range page {
				page[i] = map[string]any{
					"id": "p1", "type": "DEAL_TYPE_SELL", "profit": 1,
					"time": base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
				}
			}
			json.NewEncoder(w).Encode(page)
			return
		}
		assert.Equal(t, "1000", r.URL.Query().Get("offset"))
		w.Write([]byte(`[{"id":"last","type":"DEAL_TYPE_BUY","profit":5,"time":"2026-03-02T00:00:00Z"}]`))
	}))
	defer srv.Close()

	deals, err := newTestClient(srv, 1).FetchDeals(context.Background(), "acc", time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)
	assert.Len(t, deals, 1001)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchDeals_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	deals, err := newTestClient(srv, 3).FetchDeals(context.Background(), "acc", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, deals)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDeals_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 2).FetchDeals(context.Background(), "acc", time.Now().Add(-time.Hour), time.Now())
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "first attempt + 2 retries")
}

func TestFetchDeals_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 3).FetchDeals(context.Background(), "missing", time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, metaapi.ErrNotFound)
}

func TestFetchDeals_RespectsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(srv, 3).FetchDeals(ctx, "slow", time.Now().Add(-time.Hour), time.Now())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
