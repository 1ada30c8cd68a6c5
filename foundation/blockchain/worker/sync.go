package worker

import (
	"context"
)

// syncOperations runs fork resolution on the ticker schedule and whenever a
// sync is explicitly signaled.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runSyncOperation()
			}
		case <-w.syncNow:
			if !w.isShutdown() {
				w.runSyncOperation()
			}
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// runSyncOperation performs one fork resolution pass. Mining already syncs
// before it starts, so an active mining run skips the pass.
func (w *Worker) runSyncOperation() {
	w.evHandler("worker: runSyncOperation: started")
	defer w.evHandler("worker: runSyncOperation: completed")

	if w.state.IsMining() {
		w.evHandler("worker: runSyncOperation: skipped, mining in progress")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()

	w.state.RefreshPeers(ctx)

	replaced, err := w.state.ResolveConflicts(ctx)
	if err != nil {
		w.evHandler("worker: runSyncOperation: WARNING: %s", err)
		return
	}

	if replaced {
		w.evHandler("worker: runSyncOperation: local chain replaced")
	}
}
