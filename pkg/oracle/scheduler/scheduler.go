// Package scheduler drives the fetch-aggregate-estimate-submit pipeline on a
// fixed cadence, one independent cycle loop per tracked asset.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/logging"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/metrics"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/aggregator"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/submitter"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/oracle/volatility"
)

// State represents where a slot is within its current cycle.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateSubmitting State = "submitting"
)

// Slot is one asset's pipeline state. The estimator window and the gate
// bookkeeping persist across ticks; everything else is tick-scoped. A slot
// is only ever touched by its own cycle goroutine.
type Slot struct {
	Symbol     string
	Contract   common.Address
	Aggregator *aggregator.Aggregator
	Estimator  *volatility.Estimator

	state          State
	lastSubmitted  decimal.Decimal
	lastSubmitTime time.Time
	hasSubmitted   bool
}

// NewSlot creates a scheduler slot for one tracked asset.
func NewSlot(symbol string, contract common.Address, agg *aggregator.Aggregator, est *volatility.Estimator) *Slot {
	return &Slot{
		Symbol:     symbol,
		Contract:   contract,
		Aggregator: agg,
		Estimator:  est,
		state:      StateIdle,
	}
}

// State returns the slot's current cycle state.
func (s *Slot) State() State {
	return s.state
}

// Config holds scheduler construction parameters.
type Config struct {
	Interval time.Duration
	// MinSubmitInterval and MaxMovePct gate how often a consensus is
	// actually posted. Zero values disable the gate: every tick submits.
	MinSubmitInterval time.Duration
	MaxMovePct        float64
	Logger            *logging.Logger
}

// Scheduler runs one cycle loop per slot. Ticks for a slot run to
// completion before the next begins, so there are never overlapping
// submissions for the same asset.
type Scheduler struct {
	slots             []*Slot
	submitter         *submitter.Submitter
	interval          time.Duration
	minSubmitInterval time.Duration
	maxMovePct        decimal.Decimal
	logger            *logging.Logger
	wg                sync.WaitGroup
}

// New creates a new Scheduler over the given slots.
func New(cfg Config, slots []*Slot, sub *submitter.Submitter) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	return &Scheduler{
		slots:             slots,
		submitter:         sub,
		interval:          cfg.Interval,
		minSubmitInterval: cfg.MinSubmitInterval,
		maxMovePct:        decimal.NewFromFloat(cfg.MaxMovePct),
		logger:            logger,
	}
}

// Run starts one cycle loop per slot and returns immediately. Use Stop to
// join the loops after cancelling the context.
func (s *Scheduler) Run(ctx context.Context) {
	for _, slot := range s.slots {
		s.wg.Add(1)
		go s.runSlot(ctx, slot)
	}
	s.logger.Info("Scheduler started",
		"assets", len(s.slots),
		"interval", s.interval.String())
}

// Stop blocks until every slot's in-flight cycle has finished its
// submission bookkeeping and exited.
func (s *Scheduler) Stop() {
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runSlot(ctx context.Context, slot *Slot) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First cycle runs immediately rather than waiting a full interval.
	s.tick(ctx, slot)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, slot)
		}
	}
}

// tick executes one full pipeline cycle for a slot. Every operational
// failure is absorbed here: a tick's failure is logged and the slot simply
// waits for the next cadence boundary.
func (s *Scheduler) tick(ctx context.Context, slot *Slot) {
	start := time.Now()
	defer func() {
		metrics.RecordTick(slot.Symbol, time.Since(start))
		slot.state = StateIdle
	}()

	slot.state = StateFetching
	consensus, err := slot.Aggregator.Aggregate(ctx, slot.Symbol)
	if err != nil {
		if errors.Is(err, aggregator.ErrQuorumNotMet) {
			s.logger.Warn("Tick aborted: quorum not met",
				"symbol", slot.Symbol,
				"error", err.Error())
		} else {
			s.logger.Error("Tick aborted: aggregation failed",
				"symbol", slot.Symbol,
				"error", err.Error())
		}
		return
	}

	// The consensus price is the only tick-scoped value that outlives the
	// tick: it extends the volatility window.
	slot.Estimator.Update(consensus.Timestamp, consensus.Price)

	estimate, volErr := slot.Estimator.EstimateVolatility()
	hasVol := volErr == nil
	if hasVol {
		vol, _ := estimate.Annualized.Float64()
		metrics.RecordVolatility(slot.Symbol, vol)
	} else {
		// Price-only submission until the window has two samples.
		s.logger.Debug("No volatility estimate yet",
			"symbol", slot.Symbol,
			"samples", slot.Estimator.Len())
	}

	draft := submitter.Record{
		Symbol:        slot.Symbol,
		Price:         consensus.Price,
		Volatility:    estimate.Annualized,
		HasVolatility: hasVol,
		Degraded:      consensus.Degraded,
		Contract:      slot.Contract,
	}

	slot.state = StateSubmitting
	var record submitter.Record
	if s.shouldSubmit(slot, consensus.Price) {
		record = s.submitter.Submit(ctx, draft)
		switch record.Outcome {
		case submitter.OutcomeConfirmed, submitter.OutcomeSkipped:
			slot.lastSubmitted = consensus.Price
			slot.lastSubmitTime = time.Now()
			slot.hasSubmitted = true
		}
	} else {
		record = draft
		record.Outcome = submitter.OutcomeDeferred
		record.Reason = "interval not elapsed and move below threshold"
		metrics.RecordSubmission(slot.Symbol, string(record.Outcome), 0, 0)
	}

	s.logTick(slot, consensus, record, hasVol)
}

// shouldSubmit applies the submission gate. A degraded consensus is
// deliberately not withheld here: it submits flagged rather than silently
// starving the contract of updates.
func (s *Scheduler) shouldSubmit(slot *Slot, price decimal.Decimal) bool {
	if s.minSubmitInterval <= 0 {
		return true
	}
	if !slot.hasSubmitted {
		return true
	}
	if time.Since(slot.lastSubmitTime) >= s.minSubmitInterval {
		return true
	}
	if s.maxMovePct.IsPositive() && slot.lastSubmitted.IsPositive() {
		move := price.Sub(slot.lastSubmitted).Abs().Div(slot.lastSubmitted)
		if move.GreaterThanOrEqual(s.maxMovePct) {
			return true
		}
	}
	return false
}

// logTick emits the one structured record each tick produces.
func (s *Scheduler) logTick(slot *Slot, consensus aggregator.Consensus, record submitter.Record, hasVol bool) {
	fields := []interface{}{
		"symbol", slot.Symbol,
		"price", consensus.Price.String(),
		"sources", consensus.Sources,
		"spread", consensus.Spread.String(),
		"degraded", consensus.Degraded,
		"outcome", string(record.Outcome),
	}
	if hasVol {
		fields = append(fields, "volatility", record.Volatility.String())
	}
	if record.TxHash != "" {
		fields = append(fields, "tx_hash", record.TxHash)
	}
	if record.Reason != "" {
		fields = append(fields, "reason", record.Reason)
	}

	switch record.Outcome {
	case submitter.OutcomeAbandoned:
		s.logger.Error("Tick complete", fields...)
	case submitter.OutcomeFailed:
		s.logger.Warn("Tick complete", fields...)
	default:
		s.logger.Info("Tick complete", fields...)
	}
}
