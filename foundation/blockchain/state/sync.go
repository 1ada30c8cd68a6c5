package state

import (
	"context"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
	"github.com/nac-codes/blockbard/foundation/blockchain/peer"
)

// syncLengthTolerance allows peer chains one block shorter than ours into
// fork resolution. Quality can beat raw length, but only within this window.
const syncLengthTolerance = 1

// ResolveConflicts fetches every known peer's chain and adopts the best one:
// highest quality score wins, with the lexicographically smaller head hash
// breaking ties, including the tie against our own chain. Returns true if
// the local chain was replaced.
func (s *State) ResolveConflicts(ctx context.Context) (bool, error) {
	s.evHandler("state: ResolveConflicts: started")
	defer s.evHandler("state: ResolveConflicts: completed")

	peers := s.RetrieveKnownPeers()
	if len(peers) == 0 {
		return false, nil
	}

	s.mu.Lock()
	localLen := s.chain.Length()
	s.mu.Unlock()

	// Collect candidate chains off the lock. Network calls never run under
	// the mutex.
	var best []chain.Block
	bestScore := 0

	for _, pr := range peers {
		blocks, err := s.NetRequestPeerChain(ctx, pr)
		if err != nil {
			s.evHandler("state: ResolveConflicts: WARNING: peer[%s]: %s", pr.Address, err)
			continue
		}

		if len(blocks) < localLen-syncLengthTolerance {
			continue
		}

		if err := chain.ValidateBlocks(blocks, chain.ModeRelaxed, s.evHandler); err != nil {
			s.evHandler("state: ResolveConflicts: WARNING: peer[%s]: invalid chain: %s", pr.Address, err)
			continue
		}

		score := chain.Score(blocks)
		switch {
		case best == nil, score > bestScore:
			best, bestScore = blocks, score
		case score == bestScore && headHash(blocks) < headHash(best):
			best = blocks
		}
	}

	if best == nil {
		return false, nil
	}

	s.mu.Lock()

	localScore := s.chain.Score()
	localHead := s.chain.Latest().Hash

	adopt := bestScore > localScore ||
		(bestScore == localScore && headHash(best) < localHead)

	if !adopt {
		s.mu.Unlock()
		s.evHandler("state: ResolveConflicts: keeping local chain: score[%d] vs best[%d]", localScore, bestScore)
		return false, nil
	}

	s.Worker.SignalCancelMining()
	s.chain.Replace(best)
	adopted := s.chain.Blocks()
	s.mu.Unlock()

	s.saveSnapshot("resolve", adopted)
	s.evHandler("state: ResolveConflicts: adopted peer chain: len[%d] score[%d]", len(adopted), bestScore)

	return true, nil
}

// headHash returns the hash of the last block in a chain.
func headHash(blocks []chain.Block) string {
	return blocks[len(blocks)-1].Hash
}

// RetrieveKnownPeers returns the current set of known peers, excluding this
// node itself.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}
