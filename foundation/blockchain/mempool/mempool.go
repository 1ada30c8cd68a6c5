// Package mempool maintains the queues of contributions waiting to be mined:
// the pool of submitted payloads and the pending queue of payloads whose
// mining was interrupted.
package mempool

import (
	"sync"
)

// item is one queued contribution payload with its extracted story position.
type item struct {
	data       string
	positionID string
	structured bool
}

// Pool manages the two contribution queues. The pool side is FIFO for
// submitted contributions; the pending side holds payloads requeued after a
// lost mining race, front first so they are retried before new work.
type Pool struct {
	mu      sync.Mutex
	queue   []item
	pending []item
}

// New constructs a new pool for managing contributions.
func New() *Pool {
	return &Pool{}
}

// Add appends a contribution to the back of the pool.
func (p *Pool) Add(data string, positionID string, structured bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queue = append(p.queue, item{data: data, positionID: positionID, structured: structured})
}

// PushPending appends a contribution to the back of the pending queue. Used
// when a payload arrives while mining is already in progress.
func (p *Pool) PushPending(data string, positionID string, structured bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, item{data: data, positionID: positionID, structured: structured})
}

// RequeueFront puts a contribution at the front of the pending queue. Used
// when a mined candidate is discarded because the chain moved, so the payload
// is the first thing retried.
func (p *Pool) RequeueFront(data string, positionID string, structured bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append([]item{{data: data, positionID: positionID, structured: structured}}, p.pending...)
}

// PopPending removes and returns the front of the pending queue.
func (p *Pool) PopPending() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 {
		return "", false
	}

	it := p.pending[0]
	p.pending = p.pending[1:]
	return it.data, true
}

// PopContribution removes and returns the front of the contribution pool.
func (p *Pool) PopContribution() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return "", false
	}

	it := p.queue[0]
	p.queue = p.queue[1:]
	return it.data, true
}

// HasPosition reports whether a queued contribution already occupies the
// specified story position. Only structured positions participate; fallback
// ids aren't final until the payload is actually mined.
func (p *Pool) HasPosition(positionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, it := range p.queue {
		if it.structured && it.positionID == positionID {
			return true
		}
	}
	for _, it := range p.pending {
		if it.structured && it.positionID == positionID {
			return true
		}
	}

	return false
}

// PoolCount returns the number of contributions waiting in the pool.
func (p *Pool) PoolCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}

// PendingCount returns the number of interrupted payloads waiting to be
// retried.
func (p *Pool) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.pending)
}
