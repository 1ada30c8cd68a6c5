// Package state is the core API for the story chain node and implements all
// the business rules and processing.
package state

import (
	"sync"
	"time"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
	"github.com/nac-codes/blockbard/foundation/blockchain/genesis"
	"github.com/nac-codes/blockbard/foundation/blockchain/mempool"
	"github.com/nac-codes/blockbard/foundation/blockchain/peer"
	"github.com/nac-codes/blockbard/foundation/blockchain/storage/snapshot"
	"github.com/nac-codes/blockbard/foundation/client"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, chain syncing, and auto mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
	SignalSync()
}

// =============================================================================

// Config represents the configuration required to start
// the story chain node.
type Config struct {
	Host       string
	TrackerURL string
	Genesis    genesis.Genesis
	KnownPeers *peer.PeerSet
	Snapshots  *snapshot.Storage
	EvHandler  EventHandler
}

// State manages the story chain node.
type State struct {
	mu sync.Mutex

	host             string
	trackerURL       string
	chain            *chain.Chain
	mining           bool
	autoMine         bool
	autoMineInterval time.Duration

	genesis    genesis.Genesis
	knownPeers *peer.PeerSet
	mempool    *mempool.Pool
	snapshots  *snapshot.Storage
	client     *client.Client
	evHandler  EventHandler

	Worker Worker
}

// New constructs a new node state for chain management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	state := State{
		host:             cfg.Host,
		trackerURL:       cfg.TrackerURL,
		chain:            chain.New(cfg.Genesis, ev),
		autoMineInterval: 15 * time.Second,

		genesis:    cfg.Genesis,
		knownPeers: cfg.KnownPeers,
		mempool:    mempool.New(),
		snapshots:  cfg.Snapshots,
		client:     client.New(ev),
		evHandler:  ev,
	}

	state.saveSnapshot("init", state.chain.Blocks())

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Stop all chain writing activity.
	s.Worker.Shutdown()

	// Tell the tracker this node is leaving so peers stop gossiping to a
	// dead address. Best effort.
	s.TrackerUnregister()

	return nil
}

// =============================================================================

// IsMining reports whether a mining operation is currently in flight.
func (s *State) IsMining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mining
}

// BeginMining flips the mining flag on, reporting false if mining was
// already in progress.
func (s *State) BeginMining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mining {
		return false
	}
	s.mining = true
	return true
}

// EndMining flips the mining flag off.
func (s *State) EndMining() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mining = false
}

// SetAutoMine turns the periodic auto mining loop on or off. An interval of
// zero keeps the current one.
func (s *State) SetAutoMine(enable bool, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.autoMine = enable
	if interval > 0 {
		s.autoMineInterval = interval
	}

	s.evHandler("state: SetAutoMine: enabled[%t] interval[%v]", s.autoMine, s.autoMineInterval)
}

// AutoMineSettings returns the current auto mining flag and interval.
func (s *State) AutoMineSettings() (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.autoMine, s.autoMineInterval
}

// saveSnapshot writes the current chain to snapshot storage. Snapshots exist
// for debugging and recovery, so failures only warn.
func (s *State) saveSnapshot(label string, blocks []chain.Block) {
	if s.snapshots == nil {
		return
	}

	if _, err := s.snapshots.Save(label, blocks); err != nil {
		s.evHandler("state: saveSnapshot: WARNING: label[%s]: %s", label, err)
	}
}
