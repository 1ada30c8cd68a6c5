package chain

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// maxNonce bounds the nonce search window. Reaching it resets the nonce and
// refreshes the timestamp, which restarts the search in a new hash space.
const maxNonce = math.MaxUint32

// POW performs the proof of work search for the specified block. Pointer
// semantics are being used since a nonce is being discovered. The search
// checks for cancellation on every iteration, so callers can stop a long
// search through the context.
func POW(ctx context.Context, b *Block, ev func(v string, args ...any)) error {
	ev("chain: POW: MINING: started: blk[%d]: difficulty[%d]", b.Index, b.Difficulty)
	defer ev("chain: POW: MINING: completed: blk[%d]", b.Index)

	// Choose a random starting point for the nonce so nodes racing on the
	// same payload don't walk the same search path. After this, the nonce is
	// incremented by 1 until a solution is found.
	nBig, err := rand.Int(rand.Reader, big.NewInt(maxNonce))
	if err != nil {
		return err
	}
	b.Nonce = nBig.Uint64()

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("chain: POW: MINING: attempts[%d]", attempts)
		}

		// Did the caller cancel the search.
		if ctx.Err() != nil {
			ev("chain: POW: MINING: CANCELLED")
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.CalculateHash()
		if !isHashSolved(b.Difficulty, hash) {
			b.Nonce++
			if b.Nonce >= maxNonce {
				b.Nonce = 0
				b.TimeStamp = time.Now().UTC()
			}
			continue
		}

		b.Hash = hash

		ev("chain: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PrevBlockHash, hash)
		ev("chain: POW: MINING: attempts[%d]", attempts)

		return nil
	}
}
