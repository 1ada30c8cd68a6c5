package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
	"github.com/nac-codes/blockbard/foundation/blockchain/state"
)

// networkTimeout bounds the gossip and tracker calls that follow a
// successful mining operation.
const networkTimeout = 30 * time.Second

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the next queued contribution into a block and
// gossips it to the network.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	if w.state.QueuedContributions() == 0 {
		w.evHandler("worker: runMiningOperation: MINING: nothing queued to mine")
		return
	}

	// Only one mining operation at a time.
	if !w.state.BeginMining() {
		w.evHandler("worker: runMiningOperation: MINING: already in progress")
		return
	}
	defer w.state.EndMining()

	// After running a mining operation, check if another one should be
	// signaled for the work still queued.
	defer func() {
		if w.state.QueuedContributions() > 0 {
			w.evHandler("worker: runMiningOperation: MINING: signal new mining operation")
			w.SignalStartMining()
		}
	}()

	// Mining against a stale chain wastes the POW, so resolve forks first.
	syncCtx, syncCancel := context.WithTimeout(context.Background(), networkTimeout)
	if _, err := w.state.ResolveConflicts(syncCtx); err != nil {
		w.evHandler("worker: runMiningOperation: MINING: WARNING: resolve: %s", err)
	}
	syncCancel()

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: cancel mining requested")
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, err := w.state.MineNewBlock(ctx)
		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", time.Since(t))

		if err != nil {
			switch {
			case errors.Is(err, state.ErrNoContributions):
				w.evHandler("worker: runMiningOperation: MINING: WARNING: nothing queued to mine")
			case errors.Is(err, state.ErrChainMoved):
				w.evHandler("worker: runMiningOperation: MINING: chain moved, payload requeued")
			case errors.Is(err, chain.ErrDuplicatePosition):
				w.evHandler("worker: runMiningOperation: MINING: position claimed elsewhere, payload dropped")
			case ctx.Err() != nil:
				w.evHandler("worker: runMiningOperation: MINING: CANCELLED: by request")
			default:
				w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
			}
			return
		}

		// WOW, we mined a block. Make sure we still have peers, gossip the
		// block to them, then share the peer list so the mesh stays dense.
		netCtx, netCancel := context.WithTimeout(context.Background(), networkTimeout)
		defer netCancel()

		w.state.RefreshPeers(netCtx)
		w.state.NetSendBlockToPeers(netCtx, block)
		w.state.NetSharePeers(netCtx)
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}
