package state

import (
	"fmt"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
)

// SubmitResult describes where an accepted contribution went.
type SubmitResult struct {
	PositionID string
	Queued     bool
}

// SubmitContribution validates a story contribution against the current head
// and queues it for mining. The submitter declares which head it built on; a
// mismatch is rejected with the current head so the caller can rebuild and
// retry. Contributions arriving while a mining run is active are parked on
// the pending queue instead.
func (s *State) SubmitContribution(data string, prevHash string) (SubmitResult, error) {
	s.evHandler("state: SubmitContribution: started")
	defer s.evHandler("state: SubmitContribution: completed")

	s.mu.Lock()

	latest := s.chain.Latest()

	if prevHash != latest.Hash {
		she := StaleHeadError{
			ExpectedPrevHash: latest.Hash,
			ChainLength:      s.chain.Length(),
		}
		s.mu.Unlock()
		return SubmitResult{}, &she
	}

	pos, source := chain.ExtractPosition(data, latest.Index+1, latest.StoryPosition.PositionID)
	structured := source == chain.SourceStructured

	// A structured story position must be free in both the chain and the
	// queues. Fallback positions aren't final until mined, so they can't be
	// checked here.
	if structured {
		if s.chain.HasPosition(pos.PositionID) || s.mempool.HasPosition(pos.PositionID) {
			s.mu.Unlock()
			return SubmitResult{}, fmt.Errorf("%w: position %s", chain.ErrDuplicatePosition, pos.PositionID[:8])
		}
	}

	result := SubmitResult{
		PositionID: pos.PositionID,
	}

	if s.mining {
		s.mempool.PushPending(data, pos.PositionID, structured)
		result.Queued = true
		s.mu.Unlock()

		s.evHandler("state: SubmitContribution: mining in progress, parked on pending queue: position[%s]", pos.PositionID[:8])
		return result, nil
	}

	s.mempool.Add(data, pos.PositionID, structured)
	autoMine := s.autoMine
	s.mu.Unlock()

	s.evHandler("state: SubmitContribution: queued: position[%s]", pos.PositionID[:8])

	// Submissions only queue. Mining starts opportunistically when the auto
	// mining loop is on; otherwise an explicit mine request kicks it off.
	if autoMine {
		s.Worker.SignalStartMining()
	}

	return result, nil
}

// RequestMining queues an explicit mining request for the specified payload.
// It is the manual counterpart of SubmitContribution without the head check.
func (s *State) RequestMining(data string) SubmitResult {
	s.mu.Lock()

	latest := s.chain.Latest()
	pos, source := chain.ExtractPosition(data, latest.Index+1, latest.StoryPosition.PositionID)
	structured := source == chain.SourceStructured

	result := SubmitResult{
		PositionID: pos.PositionID,
	}

	if s.mining {
		s.mempool.PushPending(data, pos.PositionID, structured)
		result.Queued = true
		s.mu.Unlock()
		return result
	}

	s.mempool.Add(data, pos.PositionID, structured)
	s.mu.Unlock()

	s.Worker.SignalStartMining()

	return result
}
