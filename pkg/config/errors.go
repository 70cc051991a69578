package config

import "errors"

var (
	// ErrNoAssets indicates that no assets are configured.
	ErrNoAssets = errors.New("no assets configured")
	// ErrNoFeeds indicates that an asset has no price feeds configured.
	ErrNoFeeds = errors.New("no feeds configured for asset")
	// ErrInvalidQuorum indicates that the quorum is out of range.
	ErrInvalidQuorum = errors.New("invalid quorum")
	// ErrInvalidInterval indicates a non-positive interval or timeout.
	ErrInvalidInterval = errors.New("interval must be positive")
	// ErrInvalidContract indicates a malformed contract address.
	ErrInvalidContract = errors.New("invalid contract address")
	// ErrMissingRPCEndpoint indicates that the ledger RPC endpoint is not set.
	ErrMissingRPCEndpoint = errors.New("chain rpc_endpoint is required")
	// ErrInvalidPriceType indicates an unknown price type.
	ErrInvalidPriceType = errors.New("price_type must be 'spot' or 'mark'")
	// ErrInvalidSpreadTolerance indicates a spread tolerance out of range.
	ErrInvalidSpreadTolerance = errors.New("spread_tolerance must be in (0, 1]")
	// ErrInvalidWindow indicates a non-positive volatility window.
	ErrInvalidWindow = errors.New("volatility window must be at least 2")
)
