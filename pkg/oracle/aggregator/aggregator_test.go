package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/logging"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/feed"
)

// stubFeed is a feed.Client returning a canned quote or error, optionally
// after a delay.
type stubFeed struct {
	name  string
	price float64
	age   time.Duration // quote timestamp offset into the past
	err   error
	delay time.Duration
}

func (s *stubFeed) Fetch(ctx context.Context, symbol string) (feed.Quote, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return feed.Quote{}, &feed.UnavailableError{Source: s.name, Err: ctx.Err()}
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return feed.Quote{}, s.err
	}
	return feed.Quote{
		Source:    s.name,
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(s.price),
		Timestamp: time.Now().Add(-s.age),
	}, nil
}

func (s *stubFeed) Name() string { return s.name }

func newTestAggregator(t *testing.T, quorum int, clients ...feed.Client) *Aggregator {
	t.Helper()
	agg, err := New(Config{
		Clients:         clients,
		Quorum:          quorum,
		Deadline:        500 * time.Millisecond,
		Staleness:       30 * time.Second,
		SpreadTolerance: 0.05,
		Logger:          logging.NewNoopLogger(),
	})
	require.NoError(t, err)
	return agg
}

func TestAggregate_MedianOddCount(t *testing.T) {
	agg := newTestAggregator(t, 2,
		&stubFeed{name: "a", price: 100},
		&stubFeed{name: "b", price: 102},
		&stubFeed{name: "c", price: 101},
	)

	consensus, err := agg.Aggregate(context.Background(), "ETH/USD")
	require.NoError(t, err)

	assert.True(t, consensus.Price.Equal(decimal.NewFromInt(101)))
	assert.Equal(t, 3, consensus.Sources)
	assert.False(t, consensus.Degraded)
}

func TestAggregate_MedianEvenCount(t *testing.T) {
	agg := newTestAggregator(t, 2,
		&stubFeed{name: "a", price: 100},
		&stubFeed{name: "b", price: 101},
		&stubFeed{name: "c", price: 102},
		&stubFeed{name: "d", price: 103},
	)

	consensus, err := agg.Aggregate(context.Background(), "ETH/USD")
	require.NoError(t, err)

	// Average of the two middle values
	assert.True(t, consensus.Price.Equal(decimal.RequireFromString("101.5")))
	assert.Equal(t, 4, consensus.Sources)
}

func TestAggregate_OneSourceDown(t *testing.T) {
	agg := newTestAggregator(t, 2,
		&stubFeed{name: "a", price: 100},
		&stubFeed{name: "b", price: 102},
		&stubFeed{name: "c", err: &feed.UnavailableError{Source: "c", Err: errors.New("connection refused")}},
	)

	consensus, err := agg.Aggregate(context.Background(), "ETH/USD")
	require.NoError(t, err)

	// Median of {100, 102}, quorum satisfied with 2 sources
	assert.True(t, consensus.Price.Equal(decimal.NewFromInt(101)))
	assert.Equal(t, 2, consensus.Sources)
}

func TestAggregate_AllSourcesDown(t *testing.T) {
	down := &feed.UnavailableError{Source: "x", Err: errors.New("down")}
	agg := newTestAggregator(t, 2,
		&stubFeed{name: "a", err: down},
		&stubFeed{name: "b", err: down},
		&stubFeed{name: "c", err: down},
	)

	_, err := agg.Aggregate(context.Background(), "ETH/USD")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuorumNotMet))

	var quorumErr *QuorumError
	require.True(t, errors.As(err, &quorumErr))
	assert.Equal(t, 0, quorumErr.Have)
	assert.Equal(t, 2, quorumErr.Need)
}

func TestAggregate_QuorumNotMet(t *testing.T) {
	agg := newTestAggregator(t, 2,
		&stubFeed{name: "a", price: 100},
		&stubFeed{name: "b", err: &feed.UnavailableError{Source: "b", Err: errors.New("down")}},
		&stubFeed{name: "c", err: &feed.UnavailableError{Source: "c", Err: errors.New("down")}},
	)

	_, err := agg.Aggregate(context.Background(), "ETH/USD")
	assert.True(t, errors.Is(err, ErrQuorumNotMet))
}

func TestAggregate_StaleQuoteExcluded(t *testing.T) {
	agg := newTestAggregator(t, 2,
		&stubFeed{name: "a", price: 100},
		&stubFeed{name: "b", price: 102},
		&stubFeed{name: "c", price: 500, age: 5 * time.Minute}, // stale outlier
	)

	consensus, err := agg.Aggregate(context.Background(), "ETH/USD")
	require.NoError(t, err)

	// The stale quote counts toward neither the price nor the quorum
	assert.True(t, consensus.Price.Equal(decimal.NewFromInt(101)))
	assert.Equal(t, 2, consensus.Sources)
}

func TestAggregate_StaleQuotesBreakQuorum(t *testing.T) {
	agg := newTestAggregator(t, 2,
		&stubFeed{name: "a", price: 100},
		&stubFeed{name: "b", price: 102, age: 5 * time.Minute},
		&stubFeed{name: "c", price: 101, age: 5 * time.Minute},
	)

	_, err := agg.Aggregate(context.Background(), "ETH/USD")
	assert.True(t, errors.Is(err, ErrQuorumNotMet))
}

func TestAggregate_WideSpreadDegraded(t *testing.T) {
	agg := newTestAggregator(t, 2,
		&stubFeed{name: "a", price: 100},
		&stubFeed{name: "b", price: 101},
		&stubFeed{name: "c", price: 120}, // 20% away
	)

	consensus, err := agg.Aggregate(context.Background(), "ETH/USD")
	require.NoError(t, err)

	// Consensus is still produced; policy lives in the scheduler
	assert.True(t, consensus.Degraded)
	assert.True(t, consensus.Price.Equal(decimal.NewFromInt(101)))
	assert.True(t, consensus.Spread.Equal(decimal.NewFromInt(20)))
}

func TestAggregate_SlowSourceBoundedByDeadline(t *testing.T) {
	agg := newTestAggregator(t, 2,
		&stubFeed{name: "a", price: 100},
		&stubFeed{name: "b", price: 102},
		&stubFeed{name: "slow", price: 101, delay: 5 * time.Second},
	)

	start := time.Now()
	consensus, err := agg.Aggregate(context.Background(), "ETH/USD")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 2, consensus.Sources)
	// Join is bounded by the deadline, not the slowest source
	assert.Less(t, elapsed, 2*time.Second)
}

func TestNew_NoClients(t *testing.T) {
	_, err := New(Config{Quorum: 2})
	assert.True(t, errors.Is(err, ErrNoClients))
}
