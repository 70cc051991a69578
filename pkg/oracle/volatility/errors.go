// Package volatility estimates annualized historical volatility from a
// rolling window of consensus prices.
package volatility

import "errors"

var (
	// ErrInsufficientHistory indicates that fewer than two samples are retained.
	ErrInsufficientHistory = errors.New("insufficient history for volatility estimate")
	// ErrInvalidCapacity indicates a window capacity below two.
	ErrInvalidCapacity = errors.New("window capacity must be at least 2")
	// ErrInvalidCadence indicates a non-positive sampling cadence.
	ErrInvalidCadence = errors.New("sampling cadence must be positive")
)
