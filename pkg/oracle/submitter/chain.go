package submitter

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainClient is the narrow slice of the RPC client the submitter needs.
// *ethclient.Client satisfies it; tests use a fake.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Oracle contract ABI (setLatestPrice write plus latestPrice read for the
// idempotency re-check).
const oracleABIJSON = `[
	{
		"inputs": [
			{"internalType": "int256", "name": "price", "type": "int256"},
			{"internalType": "int256", "name": "volatility", "type": "int256"}
		],
		"name": "setLatestPrice",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "latestPrice",
		"outputs": [{"internalType": "int256", "name": "", "type": "int256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`
