// Package submitter delivers consensus prices to the on-chain oracle contract.
package submitter

import "errors"

var (
	// ErrInvalidPrivateKey indicates that the configured signing key is malformed.
	ErrInvalidPrivateKey = errors.New("invalid private key")
	// ErrMissingContract indicates that the target contract address is unset.
	ErrMissingContract = errors.New("missing contract address")
	// ErrReceiptTimeout indicates that no receipt appeared within the poll budget.
	ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")
	// ErrTransactionReverted indicates that the transaction was mined but reverted.
	ErrTransactionReverted = errors.New("transaction reverted")
)
