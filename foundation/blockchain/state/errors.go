package state

import (
	"errors"
	"fmt"
)

// Set of error variables for node operations.
var (
	// ErrNoContributions is returned when mining is requested and there is
	// nothing queued to mine.
	ErrNoContributions = errors.New("no contributions queued")

	// ErrChainMoved is returned when a mined block was discarded because the
	// chain head changed during the proof of work.
	ErrChainMoved = errors.New("chain moved during mining")

	// ErrChainBehind is returned when a received block is more than one step
	// ahead of the local head, meaning this node has fallen behind.
	ErrChainBehind = errors.New("local chain is behind")

	// ErrBlockNotNeeded is returned when a received block neither extends the
	// head nor improves the chain through localized repair.
	ErrBlockNotNeeded = errors.New("block not needed")
)

// StaleHeadError is returned when a contribution was built against a chain
// head that is no longer current. It carries what the submitter needs to
// rebuild and retry.
type StaleHeadError struct {
	ExpectedPrevHash string
	ChainLength      int
}

// Error implements the error interface.
func (she *StaleHeadError) Error() string {
	return fmt.Sprintf("previous hash is stale, current head is %s", she.ExpectedPrevHash)
}

// IsStaleHead tests the error for a stale head condition.
func IsStaleHead(err error) bool {
	var she *StaleHeadError
	return errors.As(err, &she)
}

// GetStaleHead returns a copy of the stale head error.
func GetStaleHead(err error) *StaleHeadError {
	var she *StaleHeadError
	if !errors.As(err, &she) {
		return nil
	}
	return she
}
