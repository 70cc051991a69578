package config

import "time"

// Config is the root configuration structure
type Config struct {
	Interval    Duration          `yaml:"interval"`     // tick cadence per asset
	FeedTimeout Duration          `yaml:"feed_timeout"` // per-call timeout for one feed fetch
	Aggregation AggregationConfig `yaml:"aggregation"`
	Volatility  VolatilityConfig  `yaml:"volatility"`
	Chain       ChainConfig       `yaml:"chain"`
	Submission  SubmissionConfig  `yaml:"submission"`
	Assets      []AssetConfig     `yaml:"assets"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AggregationConfig configures quorum and quote filtering
type AggregationConfig struct {
	Quorum          int      `yaml:"quorum"`           // minimum fresh quotes per tick
	Staleness       Duration `yaml:"staleness"`        // max quote age
	SpreadTolerance float64  `yaml:"spread_tolerance"` // fraction of median, e.g. 0.05
}

// VolatilityConfig configures the rolling sample window
type VolatilityConfig struct {
	Window int `yaml:"window"` // sample capacity
}

// ChainConfig configures the ledger connection and signing credential
type ChainConfig struct {
	RPCEndpoint    string   `yaml:"rpc_endpoint"`
	ChainID        int64    `yaml:"chain_id"`
	PrivateKey     string   `yaml:"private_key"` // hex, env-expanded; empty = print-only
	PriceDecimals  int32    `yaml:"price_decimals"`
	GasLimit       uint64   `yaml:"gas_limit"`
	MaxAttempts    int      `yaml:"max_attempts"`
	ConfirmTimeout Duration `yaml:"confirm_timeout"` // receipt poll budget per attempt
}

// SubmissionConfig gates how often a consensus is actually posted on-chain.
// Zero values disable the gate and every tick submits.
type SubmissionConfig struct {
	MinInterval Duration `yaml:"min_interval"` // minimum time between posts
	MaxMovePct  float64  `yaml:"max_move_pct"` // price move that forces an immediate post
}

// AssetConfig configures one tracked asset/oracle pair
type AssetConfig struct {
	Symbol    string       `yaml:"symbol"`     // unified symbol, e.g. "ETH/USD"
	Contract  string       `yaml:"contract"`   // oracle contract address (hex)
	PriceType string       `yaml:"price_type"` // "spot" or "mark"
	Quorum    int          `yaml:"quorum"`     // overrides aggregation.quorum when > 0
	Feeds     []FeedConfig `yaml:"feeds"`
}

// EffectiveQuorum returns the asset's quorum, falling back to the global one.
func (a *AssetConfig) EffectiveQuorum(global int) int {
	if a.Quorum > 0 {
		return a.Quorum
	}
	return global
}

// FeedConfig configures one price source for an asset
type FeedConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// GetString retrieves a string value from a feed's config map.
func (fc *FeedConfig) GetString(key, defaultValue string) string {
	if val, ok := fc.Config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}
