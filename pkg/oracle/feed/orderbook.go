package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderbookClient fetches mark prices from the internal order-book service.
// It is just one more price source to the aggregator; the service's own
// pricing model is opaque here.
type OrderbookClient struct {
	*baseClient
	baseURL string
}

// orderbookResponse is the mark-price endpoint response shape.
type orderbookResponse struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"` // unix seconds, optional
}

// NewOrderbookClient creates a client for the internal order-book service.
func NewOrderbookClient(cfg map[string]interface{}) (Client, error) {
	base, err := newBaseClient("orderbook", cfg)
	if err != nil {
		return nil, err
	}

	baseURL, ok := cfg["url"].(string)
	if !ok || baseURL == "" {
		return nil, fmt.Errorf("%w: 'url' key", ErrInvalidConfig)
	}

	return &OrderbookClient{baseClient: base, baseURL: baseURL}, nil
}

// Fetch retrieves the current mark price for a unified symbol.
func (c *OrderbookClient) Fetch(ctx context.Context, symbol string) (Quote, error) {
	srcSymbol, err := c.sourceSymbol(symbol)
	if err != nil {
		return Quote{}, err
	}

	start := time.Now()
	body, err := c.get(ctx, fmt.Sprintf("%s/public/price/mark/%s", c.baseURL, srcSymbol))
	if err != nil {
		return Quote{}, err
	}

	var resp orderbookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}

	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %q", ErrInvalidPrice, resp.Price))
	}
	if !price.IsPositive() {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %s", ErrInvalidPrice, price))
	}

	// The service reports its own observation time; fall back to now so a
	// missing field does not look infinitely stale.
	observed := time.Now()
	if resp.Timestamp > 0 {
		observed = time.Unix(resp.Timestamp, 0)
	}

	return Quote{
		Source:    c.name,
		Symbol:    symbol,
		Price:     price,
		Timestamp: observed,
		Latency:   time.Since(start),
	}, nil
}

func init() {
	Register("orderbook", NewOrderbookClient)
}
