// Package peer maintains the peer related information such as the set
// of known peers and their addresses.
package peer

import (
	"sync"
)

// Peer represents information about a node in the network. The address is
// the peer's full base URL, like http://localhost:8080.
type Peer struct {
	Address string
}

// New constructs a new peer value.
func New(address string) Peer {
	return Peer{
		Address: address,
	}
}

// Match validates if the specified address matches this peer.
func (p Peer) Match(address string) bool {
	return p.Address == address
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]struct{}
}

// NewPeerSet constructs a new set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]struct{}),
	}
}

// Add adds a new peer to the set, reporting whether it was unknown.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.set[peer]; !exists {
		ps.set[peer] = struct{}{}
		return true
	}

	return false
}

// AddAll unions the specified addresses into the set, skipping the owner's
// own address, and returns the peers that were newly added. Peer lists are
// always merged, never replaced.
func (ps *PeerSet) AddAll(addresses []string, self string) []Peer {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var added []Peer
	for _, address := range addresses {
		if address == self || address == "" {
			continue
		}

		peer := Peer{Address: address}
		if _, exists := ps.set[peer]; !exists {
			ps.set[peer] = struct{}{}
			added = append(added, peer)
		}
	}

	return added
}

// Remove removes a peer from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Count returns the number of known peers.
func (ps *PeerSet) Count() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}

// Copy returns a list of the known peers, excluding the specified address.
func (ps *PeerSet) Copy(exclude string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]Peer, 0, len(ps.set))
	for peer := range ps.set {
		if !peer.Match(exclude) {
			peers = append(peers, peer)
		}
	}

	return peers
}

// Addresses returns the addresses of the known peers, excluding the
// specified address.
func (ps *PeerSet) Addresses(exclude string) []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	addresses := make([]string, 0, len(ps.set))
	for peer := range ps.set {
		if !peer.Match(exclude) {
			addresses = append(addresses, peer.Address)
		}
	}

	return addresses
}
