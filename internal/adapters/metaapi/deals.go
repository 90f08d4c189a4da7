package metaapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jpenny18/shockwave-capital-sub003/internal/domain"
)

const (
	dealsPerPage  = 1000
	dealsMaxPages = 10
)

// FetchDeals obtiene el historial de deals de la cuenta en [from, to].
// Pagina con offset/limit y devuelve los deals ordenados por timestamp.
func (c *Client) FetchDeals(ctx context.Context, accountID string, from, to time.Time) ([]domain.Deal, error) {
	var all []domain.Deal

	for page := 0; page < dealsMaxPages; page++ {
		endpoint := fmt.Sprintf("%s/users/current/accounts/%s/history-deals/time/%s/%s?offset=%d&limit=%d",
			c.baseURL, url.PathEscape(accountID),
			url.PathEscape(formatTime(from)), url.PathEscape(formatTime(to)),
			page*dealsPerPage, dealsPerPage)

		var resp []rawDeal
		if err := c.get(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("metaapi.FetchDeals: account %s: %w", accountID, err)
		}

		all = append(all, mapDeals(resp)...)

		slog.Debug("fetched deals page",
			"account_id", accountID,
			"page", page,
			"count", len(resp),
			"total", len(all),
		)

		if len(resp) < dealsPerPage {
			break
		}
	}

	// La API no garantiza orden; el Drawdown Tracker lo exige.
	if !domain.IsChronological(all) {
		all = domain.SortDeals(all)
	}
	return all, nil
}
