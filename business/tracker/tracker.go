// Package tracker maintains the registry of live node addresses for
// bootstrapping the peer network.
package tracker

import (
	"sync"
	"time"
)

// Registry keeps the set of registered node addresses with the time each was
// last heard from. Nodes that go quiet past the TTL are evicted; the tracker
// is a convenience for bootstrapping, never an authority on membership.
type Registry struct {
	mu    sync.Mutex
	ttl   time.Duration
	nodes map[string]time.Time
}

// New constructs a registry that forgets nodes unseen for the specified TTL.
func New(ttl time.Duration) *Registry {
	return &Registry{
		ttl:   ttl,
		nodes: make(map[string]time.Time),
	}
}

// Register records the address as alive and returns the other live peers.
func (r *Registry) Register(address string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.evict(now)
	r.nodes[address] = now

	return r.peers(address)
}

// Unregister removes the address from the registry.
func (r *Registry) Unregister(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.nodes, address)
}

// Peers returns the live peers, excluding the specified address.
func (r *Registry) Peers(exclude string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(time.Now())

	return r.peers(exclude)
}

// Count returns the number of live peers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict(time.Now())

	return len(r.nodes)
}

// peers collects addresses under the lock.
func (r *Registry) peers(exclude string) []string {
	addresses := make([]string, 0, len(r.nodes))
	for address := range r.nodes {
		if address != exclude {
			addresses = append(addresses, address)
		}
	}

	return addresses
}

// evict drops nodes not heard from within the TTL. Called under the lock.
func (r *Registry) evict(now time.Time) {
	for address, lastSeen := range r.nodes {
		if now.Sub(lastSeen) > r.ttl {
			delete(r.nodes, address)
		}
	}
}
