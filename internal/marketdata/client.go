/**
 * @description
 * HTTP client for the quote provider's REST API.
 * Fetches the latest tradable price for a symbol.
 *
 * Key features:
 * - Bounded exponential retry on transient failures (backoff/v4).
 * - Client-side rate limiting to respect provider quotas (x/time/rate).
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - github.com/cenkalti/backoff/v4
 * - golang.org/x/time/rate
 * - backend/internal/config
 */

package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stockpulse-project/backend/internal/config"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultQuoteURL = "https://api.twelvedata.com"

	// Provider free tier allows 8 requests/minute; stay under it
	requestsPerMinute = 8
	maxQuoteRetries   = 3
)

// ErrNoPrice marks a quote response with no usable price.
// Non-positive or malformed values are treated as failures, never as prices.
var ErrNoPrice = errors.New("no usable price")

// Client for the quote provider REST API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new quote API client
func NewClient(cfg *config.Config) *Client {
	baseURL := DefaultQuoteURL
	if cfg.MarketData.QuoteAPIURL != "" {
		baseURL = cfg.MarketData.QuoteAPIURL
	}

	return &Client{
		BaseURL: baseURL,
		APIKey:  cfg.MarketData.QuoteAPIKey,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/requestsPerMinute), requestsPerMinute),
	}
}

// priceResponse is the provider's /price payload. The price comes back as a
// string; error responses carry code/message instead.
type priceResponse struct {
	Price   string `json:"price"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LatestPrice fetches the latest price for a symbol
// GET /price?symbol={symbol}
func (c *Client) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	u, err := url.Parse(fmt.Sprintf("%s/price", c.BaseURL))
	if err != nil {
		return 0, err
	}
	q := u.Query()
	q.Set("symbol", symbol)
	if c.APIKey != "" {
		q.Set("apikey", c.APIKey)
	}
	u.RawQuery = q.Encode()

	var price float64
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("quote api error: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("quote api error: status %d", resp.StatusCode))
		}

		var body priceResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrNoPrice, err))
		}
		if body.Code != 0 && body.Code != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%w: provider code %d: %s", ErrNoPrice, body.Code, body.Message))
		}

		parsed, err := strconv.ParseFloat(body.Price, 64)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: malformed price %q", ErrNoPrice, body.Price))
		}
		if parsed <= 0 {
			return backoff.Permanent(fmt.Errorf("%w: non-positive price %.4f", ErrNoPrice, parsed))
		}

		price = parsed
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxQuoteRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return 0, err
	}

	return price, nil
}
