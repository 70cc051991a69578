// Package aggregator reconciles quotes from multiple feeds into one consensus price.
package aggregator

import (
	"errors"
	"fmt"
)

var (
	// ErrQuorumNotMet indicates that too few fresh quotes arrived within the deadline.
	ErrQuorumNotMet = errors.New("quorum not met")
	// ErrNoClients indicates that the aggregator was built with no feed clients.
	ErrNoClients = errors.New("no feed clients configured")
)

// QuorumError carries how many fresh quotes were available versus required.
// It matches ErrQuorumNotMet under errors.Is.
type QuorumError struct {
	Symbol string
	Have   int
	Need   int
}

func (e *QuorumError) Error() string {
	return fmt.Sprintf("quorum not met for %s: %d of %d required quotes", e.Symbol, e.Have, e.Need)
}

// Is reports whether this error matches ErrQuorumNotMet.
func (e *QuorumError) Is(target error) bool {
	return target == ErrQuorumNotMet
}
