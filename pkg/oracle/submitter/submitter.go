package submitter

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/logging"
	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/metrics"
)

const (
	defaultRetryBackoff = 2 * time.Second
	defaultPollInterval = 1 * time.Second
	maxPollInterval     = 8 * time.Second
)

// Config holds submitter construction parameters.
type Config struct {
	Client         ChainClient
	ChainID        int64
	PrivateKey     string // hex encoded; empty enables print-only mode
	PriceDecimals  int32  // fixed-point scale of on-chain prices
	GasLimit       uint64
	MaxAttempts    int
	ConfirmTimeout time.Duration // receipt poll budget per attempt
	RetryBackoff   time.Duration
	PollInterval   time.Duration
	Logger         *logging.Logger
}

// Submitter builds, signs and broadcasts price-update transactions.
// Operational failure is encoded in the returned Record's outcome state;
// Submit never returns an error.
type Submitter struct {
	client         ChainClient
	chainID        *big.Int
	key            *ecdsa.PrivateKey // nil in print-only mode
	from           common.Address
	oracleABI      abi.ABI
	priceDecimals  int32
	gasLimit       uint64
	maxAttempts    int
	confirmTimeout time.Duration
	retryBackoff   time.Duration
	pollInterval   time.Duration
	logger         *logging.Logger

	// txMu serializes nonce acquisition and broadcast across assets that
	// share the signing account, so independent pipelines cannot race on
	// the account sequence.
	txMu sync.Mutex
}

// New creates a new Submitter. A missing private key is not an error: the
// submitter then short-circuits every Submit to a Skipped outcome that still
// carries the computed values.
func New(cfg Config) (*Submitter, error) {
	oracleABI, err := abi.JSON(strings.NewReader(oracleABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse oracle ABI: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	s := &Submitter{
		client:         cfg.Client,
		chainID:        big.NewInt(cfg.ChainID),
		oracleABI:      oracleABI,
		priceDecimals:  cfg.PriceDecimals,
		gasLimit:       cfg.GasLimit,
		maxAttempts:    cfg.MaxAttempts,
		confirmTimeout: cfg.ConfirmTimeout,
		retryBackoff:   cfg.RetryBackoff,
		pollInterval:   cfg.PollInterval,
		logger:         logger,
	}
	if s.retryBackoff <= 0 {
		s.retryBackoff = defaultRetryBackoff
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		s.key = key
		s.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	return s, nil
}

// From returns the signing address, or the zero address in print-only mode.
func (s *Submitter) From() common.Address {
	return s.from
}

// Submit delivers the draft record's price (and volatility, if present) to
// the oracle contract with bounded retry. The returned record always has a
// terminal outcome.
func (s *Submitter) Submit(ctx context.Context, draft Record) Record {
	record := draft
	start := time.Now()
	defer func() {
		metrics.RecordSubmission(record.Symbol, string(record.Outcome), record.Attempts, time.Since(start))
	}()

	if s.key == nil {
		record.Outcome = OutcomeSkipped
		record.Reason = "no signing credential configured"
		s.logger.Info("Submission skipped (print-only mode)",
			"symbol", record.Symbol,
			"price", record.Price.String(),
			"volatility", record.Volatility.String())
		return record
	}

	scaledPrice := s.scale(record.Price)
	scaledVol := big.NewInt(0)
	if record.HasVolatility {
		scaledVol = s.scale(record.Volatility)
	}

	// ambiguous is set when a prior attempt may have landed on-chain
	// despite the error we saw (send error, receipt timeout). Before any
	// re-broadcast in that state the current on-chain price is re-read to
	// avoid a double submission.
	ambiguous := false

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		record.Attempts = attempt

		if err := ctx.Err(); err != nil {
			record.Outcome = OutcomeAbandoned
			record.Reason = fmt.Sprintf("shutdown during submission: %v", err)
			return record
		}

		if ambiguous {
			if s.chainReflects(ctx, record.Contract, scaledPrice) {
				record.Outcome = OutcomeConfirmed
				record.Reason = "on-chain state already reflects this price"
				s.logger.Info("Submission confirmed via on-chain re-check",
					"symbol", record.Symbol, "attempt", attempt)
				return record
			}
		}

		if attempt > 1 {
			if !s.sleep(ctx, s.retryBackoff<<(attempt-2)) {
				record.Outcome = OutcomeAbandoned
				record.Reason = "shutdown during retry backoff"
				return record
			}
		}

		txHash, sent, err := s.broadcast(ctx, record.Contract, scaledPrice, scaledVol)
		if err != nil {
			ambiguous = sent
			record.Reason = err.Error()
			s.logger.Warn("Broadcast attempt failed",
				"symbol", record.Symbol,
				"attempt", attempt,
				"ambiguous", ambiguous,
				"error", err.Error())
			continue
		}
		record.TxHash = txHash.Hex()

		err = s.awaitReceipt(ctx, txHash)
		switch {
		case err == nil:
			record.Outcome = OutcomeConfirmed
			record.Reason = ""
			s.logger.Info("Submission confirmed",
				"symbol", record.Symbol,
				"tx_hash", record.TxHash,
				"attempts", attempt)
			return record

		case errors.Is(err, ErrTransactionReverted):
			// The transaction landed and reverted. Re-broadcasting the
			// same calldata would revert again, so this is terminal.
			record.Outcome = OutcomeFailed
			record.Reason = err.Error()
			s.logger.Warn("Submission failed: transaction reverted",
				"symbol", record.Symbol,
				"tx_hash", record.TxHash,
				"attempt", attempt)
			return record

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// An unconfirmed broadcast may still land later; the
			// attempt is recorded rather than silently dropped.
			record.Outcome = OutcomeAbandoned
			record.Reason = fmt.Sprintf("shutdown while awaiting confirmation of %s", record.TxHash)
			return record

		default:
			ambiguous = true
			record.Reason = err.Error()
		}

		s.logger.Warn("Confirmation attempt failed",
			"symbol", record.Symbol,
			"attempt", attempt,
			"error", record.Reason)
	}

	record.Outcome = OutcomeAbandoned
	s.logger.Error("Submission abandoned: retry budget exhausted",
		"symbol", record.Symbol,
		"attempts", record.Attempts,
		"reason", record.Reason)
	return record
}

// broadcast signs and sends one setLatestPrice transaction. sent reports
// whether SendTransaction was reached, which is what makes a failure
// ambiguous.
func (s *Submitter) broadcast(ctx context.Context, contract common.Address, price, vol *big.Int) (common.Hash, bool, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("failed to get gas price: %w", err)
	}

	data, err := s.oracleABI.Pack("setLatestPrice", price, vol)
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("failed to pack calldata: %w", err)
	}

	tx := types.NewTransaction(nonce, contract, big.NewInt(0), s.gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, true, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.logger.Debug("Transaction broadcast",
		"tx_hash", signed.Hash().Hex(),
		"nonce", nonce,
		"gas_price", gasPrice.String())

	return signed.Hash(), true, nil
}

// awaitReceipt polls for the transaction receipt with exponential backoff
// until the confirmation budget elapses.
func (s *Submitter) awaitReceipt(ctx context.Context, txHash common.Hash) error {
	deadline := time.Now().Add(s.confirmTimeout)
	interval := s.pollInterval

	for {
		receipt, err := s.client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrTransactionReverted, txHash.Hex())
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			// Transient RPC failure; keep polling within the budget.
			s.logger.Debug("Receipt poll error", "tx_hash", txHash.Hex(), "error", err.Error())
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrReceiptTimeout, txHash.Hex())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if interval < maxPollInterval {
			interval *= 2
		}
	}
}

// chainReflects reads the contract's current price and reports whether it
// already equals this tick's scaled price.
func (s *Submitter) chainReflects(ctx context.Context, contract common.Address, want *big.Int) bool {
	data, err := s.oracleABI.Pack("latestPrice")
	if err != nil {
		return false
	}

	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		s.logger.Warn("On-chain price re-check failed", "error", err.Error())
		return false
	}

	values, err := s.oracleABI.Unpack("latestPrice", out)
	if err != nil || len(values) == 0 {
		return false
	}

	current, ok := values[0].(*big.Int)
	return ok && current.Cmp(want) == 0
}

// scale converts a decimal value to the contract's fixed-point representation.
func (s *Submitter) scale(value decimal.Decimal) *big.Int {
	return value.Shift(s.priceDecimals).Round(0).BigInt()
}

// sleep waits for d or until the context is done. Returns false on cancellation.
func (s *Submitter) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
