// Package worker implements mining, chain syncing, and auto mining goroutines.
package worker

import (
	"sync"
	"time"

	"github.com/nac-codes/blockbard/foundation/blockchain/state"
)

// syncInterval represents the interval for pulling peer chains and running
// fork resolution in the background.
const syncInterval = 30 * time.Second

// autoMineStep is how often the auto mining loop re-checks its settings, so
// disabling auto mining takes effect quickly regardless of the interval.
const autoMineStep = time.Second

// Worker manages the mining, syncing, and auto mining workflows for the node.
type Worker struct {
	state        *state.State
	wg           sync.WaitGroup
	ticker       *time.Ticker
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan bool
	syncNow      chan bool
	evHandler    state.EventHandler
}

// Run creates a worker, registers it with the state, and starts all the
// operational goroutines.
func Run(st *state.State, evHandler state.EventHandler) {
	w := Worker{
		state:        st,
		ticker:       time.NewTicker(syncInterval),
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan bool, 1),
		syncNow:      make(chan bool, 1),
		evHandler:    evHandler,
	}

	// Register this worker with the state. During initialization the state
	// needs the worker to signal operations.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
		w.syncOperations,
		w.autoMineOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// =============================================================================

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately. The payload being mined is requeued by the miner.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: cancel mining signaled")
}

// SignalSync requests an immediate fork resolution pass outside the regular
// ticker schedule.
func (w *Worker) SignalSync() {
	select {
	case w.syncNow <- true:
	default:
	}
	w.evHandler("worker: SignalSync: sync signaled")
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
