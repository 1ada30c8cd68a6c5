package worker

import (
	"time"
)

// autoMineOperations drives the periodic mining loop. It wakes every step to
// re-read the settings so toggling auto mining on or off takes effect within
// a second, whatever interval is configured.
func (w *Worker) autoMineOperations() {
	w.evHandler("worker: autoMineOperations: G started")
	defer w.evHandler("worker: autoMineOperations: G completed")

	var lastMine time.Time

	for {
		select {
		case <-time.After(autoMineStep):
			enabled, interval := w.state.AutoMineSettings()
			if !enabled {
				continue
			}

			if time.Since(lastMine) < interval {
				continue
			}

			if w.state.QueuedContributions() == 0 || w.state.IsMining() {
				continue
			}

			w.evHandler("worker: autoMineOperations: interval elapsed, signal mining")
			lastMine = time.Now()
			w.SignalStartMining()

		case <-w.shut:
			w.evHandler("worker: autoMineOperations: received shut signal")
			return
		}
	}
}
