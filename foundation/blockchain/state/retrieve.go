package state

import (
	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
	"github.com/nac-codes/blockbard/foundation/blockchain/genesis"
)

// Status summarizes the node's view of itself and the network.
type Status struct {
	Address      string   `json:"address"`
	ChainLength  int      `json:"chain_length"`
	LatestHash   string   `json:"latest_hash"`
	Difficulty   uint32   `json:"difficulty"`
	Mining       bool     `json:"mining"`
	AutoMining   bool     `json:"auto_mining"`
	PoolCount    int      `json:"pool_count"`
	PendingCount int      `json:"pending_count"`
	KnownPeers   []string `json:"known_peers"`
}

// RetrieveHost returns this node's public address.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns the genesis settings the chain was built from.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveChain returns a copy of the full chain.
func (s *State) RetrieveChain() []chain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.Blocks()
}

// RetrieveLatestBlock returns a copy of the current head block.
func (s *State) RetrieveLatestBlock() chain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.Latest()
}

// RetrieveChainLength returns the number of blocks in the chain.
func (s *State) RetrieveChainLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.Length()
}

// RetrieveStatus builds the node status summary.
func (s *State) RetrieveStatus() Status {
	s.mu.Lock()

	status := Status{
		Address:     s.host,
		ChainLength: s.chain.Length(),
		LatestHash:  s.chain.Latest().Hash,
		Difficulty:  s.chain.Difficulty(),
		Mining:      s.mining,
		AutoMining:  s.autoMine,
	}

	s.mu.Unlock()

	status.PoolCount = s.mempool.PoolCount()
	status.PendingCount = s.mempool.PendingCount()
	status.KnownPeers = s.knownPeers.Addresses(s.host)

	return status
}

// QueuedContributions reports how much work is waiting to be mined.
func (s *State) QueuedContributions() int {
	return s.mempool.PoolCount() + s.mempool.PendingCount()
}
