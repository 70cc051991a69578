package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks configuration for errors that must be fatal at startup.
// A missing signing key is deliberately not an error: the submitter runs in
// print-only mode without one.
func Validate(cfg *Config) error {
	if cfg.Interval.ToDuration() <= 0 {
		return fmt.Errorf("%w: interval", ErrInvalidInterval)
	}
	if cfg.FeedTimeout.ToDuration() <= 0 {
		return fmt.Errorf("%w: feed_timeout", ErrInvalidInterval)
	}
	if cfg.Aggregation.Staleness.ToDuration() <= 0 {
		return fmt.Errorf("%w: aggregation.staleness", ErrInvalidInterval)
	}
	if cfg.Aggregation.SpreadTolerance <= 0 || cfg.Aggregation.SpreadTolerance > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidSpreadTolerance, cfg.Aggregation.SpreadTolerance)
	}
	if cfg.Volatility.Window < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidWindow, cfg.Volatility.Window)
	}

	if cfg.Chain.RPCEndpoint == "" {
		return ErrMissingRPCEndpoint
	}
	if cfg.Chain.MaxAttempts < 1 {
		return fmt.Errorf("%w: chain.max_attempts", ErrInvalidInterval)
	}

	if len(cfg.Assets) == 0 {
		return ErrNoAssets
	}
	for i, asset := range cfg.Assets {
		if err := validateAssetConfig(&asset, asset.EffectiveQuorum(cfg.Aggregation.Quorum)); err != nil {
			return fmt.Errorf("asset %d (%s): %w", i, asset.Symbol, err)
		}
	}

	return nil
}

func validateAssetConfig(asset *AssetConfig, quorum int) error {
	if asset.Symbol == "" {
		return fmt.Errorf("missing symbol")
	}
	if !strings.Contains(asset.Symbol, "/") {
		return fmt.Errorf("symbol %q must be in BASE/QUOTE format", asset.Symbol)
	}

	pt := strings.ToLower(asset.PriceType)
	if pt != "spot" && pt != "mark" {
		return fmt.Errorf("%w: got %q", ErrInvalidPriceType, asset.PriceType)
	}

	if !common.IsHexAddress(asset.Contract) {
		return fmt.Errorf("%w: %q", ErrInvalidContract, asset.Contract)
	}

	if len(asset.Feeds) == 0 {
		return ErrNoFeeds
	}
	if quorum < 1 || quorum > len(asset.Feeds) {
		return fmt.Errorf("%w: quorum %d with %d feeds", ErrInvalidQuorum, quorum, len(asset.Feeds))
	}
	for i, feed := range asset.Feeds {
		if feed.Type == "" {
			return fmt.Errorf("feed %d: missing type", i)
		}
	}

	return nil
}
