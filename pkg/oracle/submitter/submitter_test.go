package submitter

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/logging"
)

// Hardhat's first well-known development key; no funds behind it.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")

// fakeChain implements ChainClient for tests.
type fakeChain struct {
	mu            sync.Mutex
	nonce         uint64
	sendErrs      []error // consumed one per SendTransaction call
	sent          []*types.Transaction
	receiptStatus uint64
	noReceipt     bool     // receipts never appear
	onChainPrice  *big.Int // latestPrice() result; nil means the read call fails
}

func (f *fakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(42161), nil
}

func (f *fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1e9), nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if len(f.sendErrs) > 0 {
		err, f.sendErrs = f.sendErrs[0], f.sendErrs[1:]
	}
	if err != nil {
		return err
	}
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noReceipt || len(f.sent) == 0 {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.receiptStatus, TxHash: txHash}, nil
}

func (f *fakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onChainPrice == nil {
		return nil, errors.New("execution reverted")
	}
	return common.LeftPadBytes(f.onChainPrice.Bytes(), 32), nil
}

func (f *fakeChain) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestSubmitter(t *testing.T, chain ChainClient, key string) *Submitter {
	t.Helper()
	s, err := New(Config{
		Client:         chain,
		ChainID:        42161,
		PrivateKey:     key,
		PriceDecimals:  8,
		GasLimit:       200000,
		MaxAttempts:    3,
		ConfirmTimeout: 50 * time.Millisecond,
		RetryBackoff:   time.Millisecond,
		PollInterval:   5 * time.Millisecond,
		Logger:         logging.NewNoopLogger(),
	})
	require.NoError(t, err)
	return s
}

func testDraft() Record {
	return Record{
		Symbol:        "ETH/USD",
		Price:         decimal.RequireFromString("1850.42"),
		Volatility:    decimal.RequireFromString("0.61"),
		HasVolatility: true,
		Contract:      testContract,
	}
}

func TestNew_InvalidKey(t *testing.T) {
	_, err := New(Config{Client: &fakeChain{}, PrivateKey: "not-hex"})
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestSubmit_SkippedWithoutCredential(t *testing.T) {
	chain := &fakeChain{}
	s := newTestSubmitter(t, chain, "")

	record := s.Submit(context.Background(), testDraft())

	assert.Equal(t, OutcomeSkipped, record.Outcome)
	// The computed values are still carried for observability
	assert.True(t, record.Price.Equal(decimal.RequireFromString("1850.42")))
	assert.True(t, record.Volatility.Equal(decimal.RequireFromString("0.61")))
	assert.Equal(t, 0, chain.sentCount())
}

func TestSubmit_Confirmed(t *testing.T) {
	chain := &fakeChain{receiptStatus: types.ReceiptStatusSuccessful}
	s := newTestSubmitter(t, chain, testPrivateKey)

	record := s.Submit(context.Background(), testDraft())

	assert.Equal(t, OutcomeConfirmed, record.Outcome)
	assert.Equal(t, 1, record.Attempts)
	assert.NotEmpty(t, record.TxHash)
	assert.Equal(t, 1, chain.sentCount())

	// Price scaled to the contract's fixed-point representation
	sent := chain.sent[0]
	assert.Equal(t, testContract, *sent.To())
	assert.Contains(t, common.Bytes2Hex(sent.Data()), big.NewInt(185042000000).Text(16))
}

func TestSubmit_BroadcastFailureNeverPanics(t *testing.T) {
	sendErr := errors.New("connection reset by peer")
	chain := &fakeChain{sendErrs: []error{sendErr, sendErr, sendErr}}
	s := newTestSubmitter(t, chain, testPrivateKey)

	record := s.Submit(context.Background(), testDraft())

	// Always a terminal outcome after the budget, never a raised fault
	assert.Equal(t, OutcomeAbandoned, record.Outcome)
	assert.Equal(t, 3, record.Attempts)
	assert.Contains(t, record.Reason, "connection reset")
}

func TestSubmit_IdempotencyRecheck(t *testing.T) {
	// The first send errors ambiguously but the transaction actually
	// landed: the chain already records this tick's scaled price.
	chain := &fakeChain{
		sendErrs:     []error{errors.New("timeout awaiting response")},
		onChainPrice: big.NewInt(185042000000),
	}
	s := newTestSubmitter(t, chain, testPrivateKey)

	record := s.Submit(context.Background(), testDraft())

	assert.Equal(t, OutcomeConfirmed, record.Outcome)
	assert.Equal(t, 2, record.Attempts)
	// No double submission
	assert.Equal(t, 0, chain.sentCount())
	assert.Contains(t, record.Reason, "already reflects")
}

func TestSubmit_RevertedIsTerminal(t *testing.T) {
	chain := &fakeChain{receiptStatus: types.ReceiptStatusFailed}
	s := newTestSubmitter(t, chain, testPrivateKey)

	record := s.Submit(context.Background(), testDraft())

	assert.Equal(t, OutcomeFailed, record.Outcome)
	assert.Equal(t, 1, record.Attempts)
	assert.Contains(t, record.Reason, "reverted")
	// Identical calldata would revert again; no re-broadcast
	assert.Equal(t, 1, chain.sentCount())
	assert.NotEmpty(t, record.TxHash)
}

func TestSubmit_ReceiptTimeoutThenRecheckConfirms(t *testing.T) {
	// Broadcast succeeds but no receipt appears within the budget; the
	// re-check before the retry finds the price already on-chain.
	chain := &fakeChain{
		noReceipt:    true,
		onChainPrice: big.NewInt(185042000000),
	}
	s := newTestSubmitter(t, chain, testPrivateKey)

	record := s.Submit(context.Background(), testDraft())

	assert.Equal(t, OutcomeConfirmed, record.Outcome)
	assert.Equal(t, 2, record.Attempts)
	assert.Equal(t, 1, chain.sentCount())
}

func TestSubmit_ShutdownDuringConfirmationRecordsAttempt(t *testing.T) {
	chain := &fakeChain{noReceipt: true}
	s := newTestSubmitter(t, chain, testPrivateKey)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	record := s.Submit(ctx, testDraft())

	// The unconfirmed broadcast may still land later; the attempt is
	// recorded rather than silently dropped.
	assert.Equal(t, OutcomeAbandoned, record.Outcome)
	assert.NotEmpty(t, record.TxHash)
	assert.Contains(t, record.Reason, "shutdown")
}

func TestSubmit_PriceOnlyWithoutVolatility(t *testing.T) {
	chain := &fakeChain{receiptStatus: types.ReceiptStatusSuccessful}
	s := newTestSubmitter(t, chain, testPrivateKey)

	draft := testDraft()
	draft.HasVolatility = false
	draft.Volatility = decimal.Zero

	record := s.Submit(context.Background(), draft)
	assert.Equal(t, OutcomeConfirmed, record.Outcome)
}
