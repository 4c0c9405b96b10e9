// Package exchange implements the historical exchange-rate client used to
// snapshot credit-note currency conversions onto invoices.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bct-trans/efactura-api/internal/domain"
)

// Rate is a fixed multiplier converting the queried currency into RON as of
// AsOf. AsOf may differ from the requested date when the market was closed.
type Rate struct {
	Rate decimal.Decimal
	AsOf time.Time
}

// Client queries the historical-rate service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type rateReply struct {
	Date      string          `json:"date"`       // as-of date actually used
	QueryDate string          `json:"query_date"` // date that was asked for
	Rate      decimal.Decimal `json:"rate"`
}

// GetRate fetches the conversion rate for the currency on the given date.
// Any failure surfaces as ErrRateUnavailable; callers must not finalize an
// invoice with an unresolved conversion.
func (c *Client) GetRate(ctx context.Context, date time.Time, currency string) (*Rate, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	url := fmt.Sprintf("%s/exchange/%s?date=%s", c.baseURL, currency, date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("exchange: build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange: %s on %s: %v: %w", currency, date.Format("2006-01-02"), err, domain.ErrRateUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("exchange: read reply: %w", domain.ErrRateUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange: HTTP %d for %s: %w", resp.StatusCode, currency, domain.ErrRateUnavailable)
	}

	var reply rateReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("exchange: parse reply: %v: %w", err, domain.ErrRateUnavailable)
	}
	if reply.Rate.IsZero() {
		return nil, fmt.Errorf("exchange: zero rate for %s: %w", currency, domain.ErrRateUnavailable)
	}

	asOf, err := time.Parse("2006-01-02", reply.Date)
	if err != nil {
		return nil, fmt.Errorf("exchange: bad as-of date %q: %w", reply.Date, domain.ErrRateUnavailable)
	}
	return &Rate{Rate: reply.Rate, AsOf: asOf}, nil
}
