package state

import (
	"context"
	"errors"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
)

// MineNewBlock attempts to mine the next queued contribution into a block on
// the head of the chain. The proof of work runs outside the lock and can be
// cancelled; the head is re-checked under the lock before the block is
// committed, and on a lost race the payload goes back to the front of the
// pending queue.
func (s *State) MineNewBlock(ctx context.Context) (chain.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: pick next contribution")

	s.mu.Lock()

	data, ok := s.mempool.PopPending()
	if !ok {
		data, ok = s.mempool.PopContribution()
	}
	if !ok {
		s.mu.Unlock()
		return chain.Block{}, ErrNoContributions
	}

	b := s.chain.BuildCandidate(data)
	s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: perform POW: blk[%d] difficulty[%d]", b.Index, b.Difficulty)

	// Attempt to solve the POW puzzle. This can be cancelled.
	if err := chain.POW(ctx, &b, s.evHandler); err != nil {
		s.requeueFront(data)
		return chain.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		s.requeueFront(data)
		return chain.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: commit to chain: blk[%d] hash[%s]", b.Index, b.Hash)

	s.mu.Lock()

	// The head may have moved while the POW was running. The solved block is
	// then worthless, but the story payload is not.
	if latest := s.chain.Latest(); b.PrevBlockHash != latest.Hash {
		s.mu.Unlock()
		s.requeueFront(data)
		return chain.Block{}, ErrChainMoved
	}

	if err := s.chain.AddBlock(b); err != nil {

		// Another node claimed this story position while we were mining.
		// The payload is dropped, not requeued, since the position is gone.
		if errors.Is(err, chain.ErrDuplicatePosition) {
			s.mu.Unlock()
			s.evHandler("state: MineNewBlock: WARNING: position taken during mining, dropping payload: %s", err)
			return chain.Block{}, err
		}

		s.mu.Unlock()
		return chain.Block{}, err
	}

	blocks := s.chain.Blocks()
	s.mu.Unlock()

	s.saveSnapshot("mined", blocks)

	return b, nil
}

// requeueFront puts an unmined payload at the front of the pending queue so
// it is the first thing retried after the chain settles.
func (s *State) requeueFront(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.chain.Latest()
	pos, source := chain.ExtractPosition(data, latest.Index+1, latest.StoryPosition.PositionID)
	s.mempool.RequeueFront(data, pos.PositionID, source == chain.SourceStructured)
}
