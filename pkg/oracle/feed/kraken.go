package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const krakenBaseURL = "https://api.kraken.com"

// KrakenClient fetches spot prices from the Kraken REST API.
type KrakenClient struct {
	*baseClient
	apiURL string
}

// krakenResponse is the /0/public/Ticker response shape. Kraken keys the
// result by its own pair alias, so the result map is scanned rather than
// indexed by the requested pair.
type krakenResponse struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Close []string `json:"c"` // [last trade price, lot volume]
	} `json:"result"`
}

// NewKrakenClient creates a new Kraken feed client.
func NewKrakenClient(cfg map[string]interface{}) (Client, error) {
	base, err := newBaseClient("kraken", cfg)
	if err != nil {
		return nil, err
	}

	apiURL := krakenBaseURL
	if url, ok := cfg["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	return &KrakenClient{baseClient: base, apiURL: apiURL}, nil
}

// Fetch retrieves the current price for a unified symbol.
func (c *KrakenClient) Fetch(ctx context.Context, symbol string) (Quote, error) {
	srcSymbol, err := c.sourceSymbol(symbol)
	if err != nil {
		return Quote{}, err
	}

	start := time.Now()
	body, err := c.get(ctx, fmt.Sprintf("%s/0/public/Ticker?pair=%s", c.apiURL, srcSymbol))
	if err != nil {
		return Quote{}, err
	}

	var resp krakenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}
	if len(resp.Error) > 0 {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(resp.Error, "; ")))
	}

	for _, ticker := range resp.Result {
		if len(ticker.Close) == 0 {
			continue
		}
		price, err := decimal.NewFromString(ticker.Close[0])
		if err != nil || !price.IsPositive() {
			return Quote{}, unavailable(c.name, fmt.Errorf("%w: %q", ErrInvalidPrice, ticker.Close[0]))
		}

		return Quote{
			Source:    c.name,
			Symbol:    symbol,
			Price:     price,
			Timestamp: time.Now(),
			Latency:   time.Since(start),
		}, nil
	}

	return Quote{}, unavailable(c.name, fmt.Errorf("%w: empty result", ErrInvalidResponse))
}

func init() {
	Register("kraken", NewKrakenClient)
}
