package state

import (
	"fmt"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
)

// ProcessPeerBlock takes a block received from a peer and fits it into the
// local chain: as the next head block when it extends the head, through
// localized repair when it lands behind the head, or by triggering a full
// sync when the sender is too far ahead.
func (s *State) ProcessPeerBlock(b chain.Block) error {
	s.evHandler("state: ProcessPeerBlock: started: blk[%d] hash[%s]", b.Index, b.Hash)
	defer s.evHandler("state: ProcessPeerBlock: completed")

	s.mu.Lock()

	latest := s.chain.Latest()

	switch {
	case b.Index == latest.Index+1 && b.PrevBlockHash == latest.Hash:

		// The block extends our head. Any mining in flight is now working on
		// a stale parent, so cancel it; its payload is requeued by the miner.
		s.Worker.SignalCancelMining()

		if err := s.chain.AddBlock(b); err != nil {
			s.mu.Unlock()
			return err
		}

		blocks := s.chain.Blocks()
		s.mu.Unlock()

		s.saveSnapshot("received", blocks)
		s.evHandler("state: ProcessPeerBlock: accepted as new head: blk[%d]", b.Index)
		return nil

	case b.Index > latest.Index+1:

		// The sender's chain is ahead of ours by more than one block. Let the
		// background sync pull their chain; the conflict response tells the
		// sender we diverged.
		s.mu.Unlock()

		s.Worker.SignalSync()
		return fmt.Errorf("%w: received blk[%d], local head[%d]", ErrChainBehind, b.Index, latest.Index)

	case b.Index == latest.Index+1:

		// Right index, wrong parent. The fork is at our head and a single
		// block can't resolve it.
		s.mu.Unlock()

		s.Worker.SignalSync()
		return fmt.Errorf("%w: parent hash mismatch at blk[%d]", ErrBlockNotNeeded, b.Index)

	default:
		return s.spliceRepair(b)
	}
}

// spliceRepair attempts a localized repair for a block landing at or behind
// the local head: splice it over the block currently at its index, keep the
// existing suffix only if it still hash-links, and adopt the result only if
// it scores strictly better than what we have. Called with the lock held;
// releases it.
func (s *State) spliceRepair(b chain.Block) error {
	if b.Index == 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: genesis block is not replaceable", ErrBlockNotNeeded)
	}

	blocks := s.chain.Blocks()

	candidate := make([]chain.Block, b.Index, len(blocks))
	copy(candidate, blocks[:b.Index])
	candidate = append(candidate, b)

	// The blocks past the splice point survive only if the first of them
	// still links to the incoming block.
	if suffix := blocks[b.Index+1:]; len(suffix) > 0 && suffix[0].PrevBlockHash == b.Hash {
		candidate = append(candidate, suffix...)
	}

	if err := chain.ValidateBlocks(candidate, chain.ModeRelaxed, s.evHandler); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: spliced chain invalid: %s", ErrBlockNotNeeded, err)
	}

	curScore := s.chain.Score()
	newScore := chain.Score(candidate)

	if newScore <= curScore {
		s.mu.Unlock()
		return fmt.Errorf("%w: spliced chain scores %d, keeping %d", ErrBlockNotNeeded, newScore, curScore)
	}

	s.Worker.SignalCancelMining()
	s.chain.Replace(candidate)
	adopted := s.chain.Blocks()
	s.mu.Unlock()

	s.saveSnapshot("repair", adopted)
	s.evHandler("state: spliceRepair: adopted spliced chain: blk[%d] score[%d -> %d]", b.Index, curScore, newScore)

	return nil
}
