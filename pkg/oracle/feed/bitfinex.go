package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	bitfinexBaseURL = "https://api-pub.bitfinex.com/v2"
	// Index of LAST_PRICE in the bitfinex ticker array.
	bitfinexLastPriceIdx = 6
)

// BitfinexClient fetches spot prices from the Bitfinex REST API.
// The ticker response is a bare JSON array of numbers:
// [BID, BID_SIZE, ASK, ASK_SIZE, DAILY_CHANGE, DAILY_CHANGE_RELATIVE, LAST_PRICE, ...]
type BitfinexClient struct {
	*baseClient
	apiURL string
}

// NewBitfinexClient creates a new Bitfinex feed client.
func NewBitfinexClient(cfg map[string]interface{}) (Client, error) {
	base, err := newBaseClient("bitfinex", cfg)
	if err != nil {
		return nil, err
	}

	apiURL := bitfinexBaseURL
	if url, ok := cfg["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	return &BitfinexClient{baseClient: base, apiURL: apiURL}, nil
}

// Fetch retrieves the current price for a unified symbol.
func (c *BitfinexClient) Fetch(ctx context.Context, symbol string) (Quote, error) {
	srcSymbol, err := c.sourceSymbol(symbol)
	if err != nil {
		return Quote{}, err
	}

	start := time.Now()
	body, err := c.get(ctx, fmt.Sprintf("%s/ticker/%s", c.apiURL, srcSymbol))
	if err != nil {
		return Quote{}, err
	}

	var ticker []json.Number
	if err := json.Unmarshal(body, &ticker); err != nil {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}
	if len(ticker) <= bitfinexLastPriceIdx {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: ticker has %d fields", ErrInvalidResponse, len(ticker)))
	}

	price, err := decimal.NewFromString(ticker[bitfinexLastPriceIdx].String())
	if err != nil {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %q", ErrInvalidPrice, ticker[bitfinexLastPriceIdx]))
	}
	if !price.IsPositive() {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %s", ErrInvalidPrice, price))
	}

	return Quote{
		Source:    c.name,
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now(),
		Latency:   time.Since(start),
	}, nil
}

func init() {
	Register("bitfinex", NewBitfinexClient)
}
