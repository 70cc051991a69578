// Package feed provides price feed clients for external exchanges.
package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one source's reported price at a point in time.
// A Quote is immutable once produced and is discarded after aggregation.
type Quote struct {
	Source    string          `json:"source"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Latency   time.Duration   `json:"latency"`
}

// Client defines the interface all price feed clients implement.
// Fetch performs exactly one outbound call bounded by the configured
// per-call timeout. It never retries; cross-source substitution in the
// aggregator is cheaper than re-querying a slow source.
type Client interface {
	// Fetch returns a current quote for the unified symbol, or an
	// *UnavailableError on timeout, non-2xx status or malformed response.
	Fetch(ctx context.Context, symbol string) (Quote, error)

	// Name returns the unique name of this feed
	Name() string
}

// Factory is a function that creates a new Client instance
type Factory func(cfg map[string]interface{}) (Client, error)
