package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const binanceBaseURL = "https://api.binance.com"

// BinanceClient fetches spot prices from the Binance REST API.
type BinanceClient struct {
	*baseClient
	apiURL string
}

// binanceTicker is the /ticker/price response shape.
type binanceTicker struct {
	Symbol string `json:"symbol"` // e.g., "ETHUSDC"
	Price  string `json:"price"`  // string decimal
}

// NewBinanceClient creates a new Binance feed client.
func NewBinanceClient(cfg map[string]interface{}) (Client, error) {
	base, err := newBaseClient("binance", cfg)
	if err != nil {
		return nil, err
	}

	apiURL := binanceBaseURL
	if url, ok := cfg["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	return &BinanceClient{baseClient: base, apiURL: apiURL}, nil
}

// Fetch retrieves the current price for a unified symbol.
func (c *BinanceClient) Fetch(ctx context.Context, symbol string) (Quote, error) {
	srcSymbol, err := c.sourceSymbol(symbol)
	if err != nil {
		return Quote{}, err
	}

	start := time.Now()
	body, err := c.get(ctx, fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.apiURL, srcSymbol))
	if err != nil {
		return Quote{}, err
	}

	var ticker binanceTicker
	if err := json.Unmarshal(body, &ticker); err != nil {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return Quote{}, unavailable(c.name, fmt.Errorf("%w: %q", ErrInvalidPrice, ticker.Price))
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
	Register("binance", NewBinanceClient)
}
