package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pareto-xyz/pareto-oracle-bot-v1/pkg/logging"
)

const defaultTimeout = 10 * time.Second

// baseClient provides the shared HTTP plumbing for feed clients.
// Each concrete client embeds it and supplies URL building and parsing.
type baseClient struct {
	name       string
	pairs      map[string]string // unified symbol -> source-specific symbol
	httpClient *http.Client
	logger     *logging.Logger
}

func newBaseClient(name string, cfg map[string]interface{}) (*baseClient, error) {
	pairs, err := ParsePairsFromMap(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	return &baseClient{
		name:       name,
		pairs:      pairs,
		httpClient: &http.Client{Timeout: GetTimeoutFromConfig(cfg)},
		logger:     GetLoggerFromConfig(cfg),
	}, nil
}

// Name returns the feed name
func (b *baseClient) Name() string {
	return b.name
}

// sourceSymbol converts a unified symbol to the source-specific symbol
func (b *baseClient) sourceSymbol(symbol string) (string, error) {
	src, ok := b.pairs[symbol]
	if !ok {
		return "", unavailable(b.name, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol))
	}
	return src, nil
}

// get performs a GET request and returns the body of a 2xx response.
// Every failure mode is wrapped as an UnavailableError so a partial or
// garbage body can never leak out of a feed client.
func (b *baseClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, unavailable(b.name, fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unavailable(b.name, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(b.name, fmt.Errorf("failed to read response: %w", err))
	}

	return body, nil
}

// GetLoggerFromConfig extracts the logger from a config map or returns a
// noop logger so clients never dereference a nil logger.
func GetLoggerFromConfig(cfg map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := cfg["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok {
			return logger
		}
	}
	return logging.NewNoopLogger()
}

// GetTimeoutFromConfig extracts the per-call timeout from a config map.
func GetTimeoutFromConfig(cfg map[string]interface{}) time.Duration {
	if t, ok := cfg["timeout"]; ok {
		if d, ok := t.(time.Duration); ok && d > 0 {
			return d
		}
	}
	return defaultTimeout
}

// ParsePairsFromMap extracts pair mappings from config where pairs is a map.
// Expected format: pairs: { "ETH/USD": "ETHUSDC", "BTC/USD": "BTCUSDC" }.
func ParsePairsFromMap(cfg map[string]interface{}) (map[string]string, error) {
	pairsRaw, ok := cfg["pairs"]
	if !ok {
		return nil, fmt.Errorf("%w: 'pairs' key", ErrInvalidConfig)
	}

	pairsMap, ok := pairsRaw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: pairs must be map[string]string", ErrInvalidConfig)
	}

	pairs := make(map[string]string, len(pairsMap))
	for unified, sourceRaw := range pairsMap {
		source, ok := sourceRaw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %T", ErrInvalidConfig, unified, sourceRaw)
		}
		pairs[unified] = source
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no pairs configured", ErrInvalidConfig)
	}

	return pairs, nil
}
