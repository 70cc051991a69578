package submitter

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Outcome is the terminal state of one submission.
type Outcome string

const (
	// OutcomeConfirmed means the transaction was mined successfully, or the
	// chain already reflected this tick's price.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeFailed means the transaction was mined but reverted; retrying
	// the same calldata would revert again.
	OutcomeFailed Outcome = "failed"
	// OutcomeAbandoned means the retry budget was exhausted.
	OutcomeAbandoned Outcome = "abandoned"
	// OutcomeSkipped means no signing credential is configured; the computed
	// values are still carried on the record for observability.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDeferred means the scheduler's submission gate withheld this
	// tick's consensus (interval not elapsed and move below threshold).
	OutcomeDeferred Outcome = "deferred"
)

// Record tracks one submission from draft to terminal outcome.
type Record struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Volatility    decimal.Decimal `json:"volatility"`
	HasVolatility bool            `json:"has_volatility"`
	Degraded      bool            `json:"degraded"` // consensus quality flag carried through
	Contract      common.Address  `json:"contract"`
	TxHash        string          `json:"tx_hash,omitempty"`
	Attempts      int             `json:"attempts"`
	Outcome       Outcome         `json:"outcome"`
	Reason        string          `json:"reason,omitempty"`
}
