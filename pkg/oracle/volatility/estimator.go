package volatility

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Sample is one retained (timestamp, price) observation.
type Sample struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// Estimate is a derived volatility figure. It is recomputed from the window
// every tick and never persisted on its own.
type Estimate struct {
	Symbol     string          `json:"symbol"`
	Annualized decimal.Decimal `json:"annualized"`
	Samples    int             `json:"samples"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Estimator owns a fixed-capacity FIFO window of price samples and computes
// an annualized volatility from their log-returns.
//
// Not safe for concurrent use. Each tracked asset owns exactly one Estimator
// and the scheduler's no-overlap rule keeps cycles from racing on it.
type Estimator struct {
	symbol   string
	capacity int
	cadence  time.Duration // expected spacing between samples
	window   []Sample
}

// NewEstimator creates an estimator for one asset.
// cadence is the configured tick interval; it fixes the annualization factor.
func NewEstimator(symbol string, capacity int, cadence time.Duration) (*Estimator, error) {
	if capacity < 2 {
		return nil, ErrInvalidCapacity
	}
	if cadence <= 0 {
		return nil, ErrInvalidCadence
	}
	return &Estimator{
		symbol:   symbol,
		capacity: capacity,
		cadence:  cadence,
		window:   make([]Sample, 0, capacity),
	}, nil
}

// Update appends a sample to the window. A sample whose timestamp is not
// strictly greater than the last retained sample's is dropped, so
// out-of-order or duplicate submissions never corrupt history. The oldest
// sample is evicted once capacity is exceeded.
func (e *Estimator) Update(timestamp time.Time, price decimal.Decimal) {
	if n := len(e.window); n > 0 && !timestamp.After(e.window[n-1].Timestamp) {
		return
	}

	e.window = append(e.window, Sample{Timestamp: timestamp, Price: price})
	if len(e.window) > e.capacity {
		e.window = e.window[1:]
	}
}

// Len returns the number of retained samples.
func (e *Estimator) Len() int {
	return len(e.window)
}

// Samples returns a copy of the retained window, oldest first.
func (e *Estimator) Samples() []Sample {
	out := make([]Sample, len(e.window))
	copy(out, e.window)
	return out
}

// EstimateVolatility computes the annualized sample standard deviation of
// per-step log-returns over the retained window. The result is a pure
// function of the window contents and the configured cadence.
func (e *Estimator) EstimateVolatility() (Estimate, error) {
	n := len(e.window)
	if n < 2 {
		return Estimate{}, ErrInsufficientHistory
	}

	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prev, _ := e.window[i-1].Price.Float64()
		cur, _ := e.window[i].Price.Float64()
		returns = append(returns, math.Log(cur/prev))
	}

	annualized := sampleStdDev(returns) * math.Sqrt(e.periodsPerYear())

	return Estimate{
		Symbol:     e.symbol,
		Annualized: decimal.NewFromFloat(annualized),
		Samples:    n,
		Timestamp:  e.window[n-1].Timestamp,
	}, nil
}

// periodsPerYear derives the annualization base from the sampling cadence.
func (e *Estimator) periodsPerYear() float64 {
	const year = 365 * 24 * time.Hour
	return float64(year) / float64(e.cadence)
}

// sampleStdDev computes the sample (n-1) standard deviation.
func sampleStdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(n - 1)

	return math.Sqrt(variance)
}
