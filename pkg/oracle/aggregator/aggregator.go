package aggregator

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/logging"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/metrics"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/feed"
)

// Consensus is the reconciled single price for one tick.
type Consensus struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Sources   int             `json:"sources"` // fresh quotes folded into the price
	Spread    decimal.Decimal `json:"spread"`  // max pairwise difference among fresh quotes
	Degraded  bool            `json:"degraded"`
	Timestamp time.Time       `json:"timestamp"`
}

// Config holds aggregator construction parameters.
type Config struct {
	Clients         []feed.Client
	Quorum          int           // minimum fresh quotes per tick
	Deadline        time.Duration // fan-out join deadline
	Staleness       time.Duration // max quote age
	SpreadTolerance float64       // fraction of the median, e.g. 0.05
	Logger          *logging.Logger
}

// Aggregator fans out to all feed clients concurrently and reduces their
// quotes to a median consensus.
type Aggregator struct {
	clients   []feed.Client
	quorum    int
	deadline  time.Duration
	staleness time.Duration
	tolerance decimal.Decimal
	logger    *logging.Logger
}

// New creates a new Aggregator.
func New(cfg Config) (*Aggregator, error) {
	if len(cfg.Clients) == 0 {
		return nil, ErrNoClients
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	return &Aggregator{
		clients:   cfg.Clients,
		quorum:    cfg.Quorum,
		deadline:  cfg.Deadline,
		staleness: cfg.Staleness,
		tolerance: decimal.NewFromFloat(cfg.SpreadTolerance),
		logger:    logger,
	}, nil
}

type fetchResult struct {
	quote feed.Quote
	err   error
}

// Aggregate queries every feed concurrently and reduces the fresh quotes to
// a consensus price. The join is bounded by the deadline, never by the sum
// of source latencies. A per-source failure only reduces the quorum count;
// it never surfaces past this boundary.
func (a *Aggregator) Aggregate(ctx context.Context, symbol string) (Consensus, error) {
	ctx, cancel := context.WithTimeout(ctx, a.deadline)
	defer cancel()

	results := make(chan fetchResult, len(a.clients))
	for _, client := range a.clients {
		go func(client feed.Client) {
			start := time.Now()
			quote, err := client.Fetch(ctx, symbol)
			status := "ok"
			if err != nil {
				status = "error"
			}
			metrics.RecordFeedFetch(client.Name(), status, time.Since(start))
			results <- fetchResult{quote: quote, err: err}
		}(client)
	}

	quotes := make([]feed.Quote, 0, len(a.clients))
collect:
	for i := 0; i < len(a.clients); i++ {
		select {
		case res := <-results:
			if res.err != nil {
				a.logger.Warn("Feed unavailable", "symbol", symbol, "error", res.err.Error())
				continue
			}
			quotes = append(quotes, res.quote)
		case <-ctx.Done():
			// Late quotes are discarded; the buffered channel lets the
			// remaining fetch goroutines finish without leaking.
			break collect
		}
	}

	fresh := a.filterFresh(symbol, quotes)
	if len(fresh) < a.quorum {
		metrics.RecordQuorumFailure(symbol)
		return Consensus{}, &QuorumError{Symbol: symbol, Have: len(fresh), Need: a.quorum}
	}

	return a.reduce(symbol, fresh), nil
}

// filterFresh drops quotes older than the staleness threshold. Stale quotes
// count toward neither the price nor the quorum.
func (a *Aggregator) filterFresh(symbol string, quotes []feed.Quote) []feed.Quote {
	now := time.Now()
	fresh := make([]feed.Quote, 0, len(quotes))
	for _, q := range quotes {
		if now.Sub(q.Timestamp) > a.staleness {
			a.logger.Warn("Discarding stale quote",
				"symbol", symbol,
				"source", q.Source,
				"age", now.Sub(q.Timestamp).String())
			continue
		}
		fresh = append(fresh, q)
	}
	return fresh
}

// reduce computes the median price and max pairwise spread of fresh quotes.
// Source identity is irrelevant here; only the numeric values matter.
func (a *Aggregator) reduce(symbol string, quotes []feed.Quote) Consensus {
	prices := make([]decimal.Decimal, len(quotes))
	for i, q := range quotes {
		prices[i] = q.Price
	}
	sort.Slice(prices, func(i, j int) bool {
		return prices[i].LessThan(prices[j])
	})

	mid := median(prices)
	spread := prices[len(prices)-1].Sub(prices[0])
	degraded := spread.GreaterThan(a.tolerance.Mul(mid))

	if degraded {
		a.logger.Warn("Consensus quality degraded: spread exceeds tolerance",
			"symbol", symbol,
			"median", mid.String(),
			"spread", spread.String())
	}

	price, _ := mid.Float64()
	spreadF, _ := spread.Float64()
	metrics.RecordConsensus(symbol, price, spreadF, degraded)

	return Consensus{
		Symbol:    symbol,
		Price:     mid,
		Sources:   len(quotes),
		Spread:    spread,
		Degraded:  degraded,
		Timestamp: time.Now(),
	}
}

// median computes the numeric median of a sorted price list. An even count
// averages the two middle values.
func median(sorted []decimal.Decimal) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}
