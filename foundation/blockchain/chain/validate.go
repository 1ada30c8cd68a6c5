package chain

import (
	"errors"
	"fmt"
)

// ErrDuplicatePosition is returned when a block's story position is already
// occupied in the target chain.
var ErrDuplicatePosition = errors.New("duplicate story position")

// ValidateMode controls whether story position uniqueness is enforced.
// Uniqueness is relaxed only while scoring competing chains during fork
// resolution; duplicates are then penalized instead of rejected.
type ValidateMode int

// Set of validation modes.
const (
	ModeStrict ValidateMode = iota + 1
	ModeRelaxed
)

// ValidateNextBlock validates that the candidate block is a proper successor
// of the previous block. The positions map holds the story positions already
// occupied in the target chain. Failures identify the violated invariant;
// the ordering checks on position metadata only ever warn.
func ValidateNextBlock(b Block, prev Block, positions map[string]uint64, mode ValidateMode, ev func(v string, args ...any)) error {
	if b.Index != prev.Index+1 {
		return fmt.Errorf("this block is not the next index, got %d, exp %d", b.Index, prev.Index+1)
	}

	if b.PrevBlockHash != prev.Hash {
		return fmt.Errorf("parent hash doesn't match our known parent, got %s, exp %s", b.PrevBlockHash, prev.Hash)
	}

	// Recompute the hash so a mutated field can't hide behind a stale hash.
	if hash := b.CalculateHash(); hash != b.Hash {
		return fmt.Errorf("block hash doesn't match its contents, got %s, exp %s", b.Hash, hash)
	}

	// The block must satisfy its own stated difficulty, which is the
	// difficulty that was in force when it was mined.
	if !isHashSolved(b.Difficulty, b.Hash) {
		return fmt.Errorf("hash %s does not meet difficulty %d", b.Hash, b.Difficulty)
	}

	if b.StoryPosition.PositionID == "" {
		return fmt.Errorf("block %d carries no story position", b.Index)
	}

	if mode == ModeStrict {
		if at, exists := positions[b.StoryPosition.PositionID]; exists && at != b.Index {
			return fmt.Errorf("%w: position %s already held by block %d", ErrDuplicatePosition, b.StoryPosition.PositionID[:8], at)
		}
	}

	// The remaining checks are advisory. A contribution that doesn't chain
	// its position to its predecessor is tolerated so cross-fork merges stay
	// possible.
	if b.StoryPosition.PrevPositionID != prev.StoryPosition.PositionID {
		ev("chain: validate: WARNING: blk[%d]: previous position id doesn't match predecessor", b.Index)
	}

	if positionRegressed(prev.StoryPosition, b.StoryPosition) {
		ev("chain: validate: WARNING: blk[%d]: story position metadata does not advance", b.Index)
	}

	return nil
}

// ValidateBlocks validates an entire chain: the genesis block must be
// structurally exact and every subsequent pair must pass block validation.
func ValidateBlocks(blocks []Block, mode ValidateMode, ev func(v string, args ...any)) error {
	if len(blocks) == 0 {
		return errors.New("chain is empty")
	}

	if err := validateGenesis(blocks[0]); err != nil {
		return err
	}

	positions := make(map[string]uint64, len(blocks)-1)
	for _, b := range blocks[1:] {
		if _, exists := positions[b.StoryPosition.PositionID]; !exists {
			positions[b.StoryPosition.PositionID] = b.Index
		}
	}

	for i := 1; i < len(blocks); i++ {
		if err := ValidateNextBlock(blocks[i], blocks[i-1], positions, mode, ev); err != nil {
			return fmt.Errorf("chain invalid at block %d: %w", blocks[i].Index, err)
		}
	}

	return nil
}

// validateGenesis checks the structural invariants of block 0.
func validateGenesis(b Block) error {
	if b.Index != 0 {
		return fmt.Errorf("genesis block has index %d", b.Index)
	}

	if b.PrevBlockHash != GenesisPrevHash {
		return fmt.Errorf("genesis previous hash is %q, exp %q", b.PrevBlockHash, GenesisPrevHash)
	}

	if hash := b.CalculateHash(); hash != b.Hash {
		return fmt.Errorf("genesis hash doesn't match its contents, got %s, exp %s", b.Hash, hash)
	}

	return nil
}
