package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkamau/tokenvault/internal/logging"
)

// PriceSource yields the current USD price of the token. The HTTP client below
// is the production implementation; tests substitute their own.
type PriceSource interface {
	FetchUSDPrice(ctx context.Context) (decimal.Decimal, error)
}

// Client fetches the token's USD price from a CoinCap-style assets endpoint.
type Client struct {
	baseURL    string
	assetID    string
	httpClient *http.Client
}

func NewClient(baseURL, assetID string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		assetID: assetID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type assetResponse struct {
	Data struct {
		PriceUSD string `json:"priceUsd"`
	} `json:"data"`
}

func (c *Client) FetchUSDPrice(ctx context.Context) (decimal.Decimal, error) {
	log := logging.FromContext(ctx)

	url := fmt.Sprintf("%s/v2/assets/%s", c.baseURL, c.assetID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("FetchUSDPrice: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return decimal.Zero, fmt.Errorf("FetchUSDPrice: send: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("price source response received",
		"asset", c.assetID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("FetchUSDPrice: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed assetResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, fmt.Errorf("FetchUSDPrice: decode: %w", err)
	}
	if parsed.Data.PriceUSD == "" {
		return decimal.Zero, fmt.Errorf("FetchUSDPrice: response missing priceUsd")
	}

	price, err := decimal.NewFromString(parsed.Data.PriceUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("FetchUSDPrice: parse priceUsd %q: %w", parsed.Data.PriceUSD, err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("FetchUSDPrice: negative priceUsd %s", price)
	}

	return price, nil
}
