package state

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
	"github.com/nac-codes/blockbard/foundation/blockchain/peer"
	"github.com/nac-codes/blockbard/foundation/client"
)

// Wire representations shared between peer nodes. A chain travels as a bare
// JSON array of blocks.
type (
	discoverRequest struct {
		Address string `json:"address"`
	}

	discoverResponse struct {
		Peers       []string `json:"peers"`
		ChainLength int      `json:"chain_length"`
	}

	updatePeersRequest struct {
		Peers []string `json:"peers"`
	}
)

// NetSendBlockToPeers takes a newly mined block and gossips it to all known
// peers. Peers that answer with a conflict get the two-step repair: a
// discovery handshake to exchange peer lists, then exactly one resend. Peers
// still conflicted after that need a full sync, which is signalled once.
func (s *State) NetSendBlockToPeers(ctx context.Context, b chain.Block) {
	s.evHandler("state: NetSendBlockToPeers: started: blk[%d]", b.Index)
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	var conflicted []peer.Peer
	var accepted int

	for _, pr := range s.RetrieveKnownPeers() {
		err := s.client.Send(ctx, http.MethodPost, pr.Address+"/add_block", b, nil)
		switch {
		case err == nil:
			accepted++
			s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]", pr.Address)

		case client.IsConflict(err):
			s.evHandler("state: NetSendBlockToPeers: peer[%s] rejected with conflict", pr.Address)
			conflicted = append(conflicted, pr)

		case errors.Is(err, client.ErrUnavailable):
			s.evHandler("state: NetSendBlockToPeers: WARNING: peer[%s] unreachable: %s", pr.Address, err)

		default:
			s.evHandler("state: NetSendBlockToPeers: WARNING: peer[%s]: %s", pr.Address, err)
		}
	}

	if len(conflicted) == 0 {
		return
	}

	// When nobody accepted the block, the odd one out is us, not them. Skip
	// the repair and pull the network's chain instead.
	if accepted == 0 {
		s.evHandler("state: NetSendBlockToPeers: every peer rejected the block, requesting sync")
		s.Worker.SignalSync()
		return
	}

	// Step one of the repair: a discovery handshake with each conflicted
	// peer. Learning each other's peer lists is often enough for the gossip
	// paths to reconverge.
	for _, pr := range conflicted {
		if _, err := s.NetDiscover(ctx, pr); err != nil {
			s.evHandler("state: NetSendBlockToPeers: WARNING: discover handshake with peer[%s] failed: %s", pr.Address, err)
		}
	}

	// Step two: one resend, no more. Anything still conflicted after the
	// handshake is a real divergence.
	var divergence bool
	for _, pr := range conflicted {
		err := s.client.Send(ctx, http.MethodPost, pr.Address+"/add_block", b, nil)
		switch {
		case err == nil:
			s.evHandler("state: NetSendBlockToPeers: peer[%s] accepted on resend", pr.Address)

		case client.IsConflict(err):
			divergence = true

		default:
			s.evHandler("state: NetSendBlockToPeers: WARNING: peer[%s]: resend: %s", pr.Address, err)
		}
	}

	if divergence {
		s.evHandler("state: NetSendBlockToPeers: divergence persists, requesting sync")
		s.Worker.SignalSync()
	}
}

// NetRequestPeerChain asks the specified peer for its full chain.
func (s *State) NetRequestPeerChain(ctx context.Context, pr peer.Peer) ([]chain.Block, error) {
	s.evHandler("state: NetRequestPeerChain: started: peer[%s]", pr.Address)
	defer s.evHandler("state: NetRequestPeerChain: completed: peer[%s]", pr.Address)

	var blocks []chain.Block
	if err := s.client.Send(ctx, http.MethodGet, pr.Address+"/get_chain", nil, &blocks); err != nil {
		return nil, err
	}

	return blocks, nil
}

// NetDiscover performs the discovery handshake with the specified peer:
// introduce ourselves, learn their peers, and merge the result into the
// known peer set.
func (s *State) NetDiscover(ctx context.Context, pr peer.Peer) (int, error) {
	s.evHandler("state: NetDiscover: started: peer[%s]", pr.Address)
	defer s.evHandler("state: NetDiscover: completed: peer[%s]", pr.Address)

	req := discoverRequest{
		Address: s.host,
	}

	var resp discoverResponse
	if err := s.client.Send(ctx, http.MethodPost, pr.Address+"/discover", req, &resp); err != nil {
		return 0, err
	}

	added := s.knownPeers.AddAll(resp.Peers, s.host)
	for _, p := range added {
		s.evHandler("state: NetDiscover: learned peer[%s]", p.Address)
	}

	// A longer remote chain is a hint we fell behind.
	if resp.ChainLength > s.RetrieveChainLength() {
		s.evHandler("state: NetDiscover: peer[%s] chain is longer, requesting sync", pr.Address)
		s.Worker.SignalSync()
	}

	return resp.ChainLength, nil
}

// NetSharePeers pushes this node's peer list, including itself, to all known
// peers. Best effort.
func (s *State) NetSharePeers(ctx context.Context) {
	s.evHandler("state: NetSharePeers: started")
	defer s.evHandler("state: NetSharePeers: completed")

	addresses := append(s.knownPeers.Addresses(""), s.host)

	for _, pr := range s.RetrieveKnownPeers() {
		req := updatePeersRequest{
			Peers: addresses,
		}

		if err := s.client.Send(ctx, http.MethodPost, pr.Address+"/update_peers", req, nil); err != nil {
			s.evHandler("state: NetSharePeers: WARNING: peer[%s]: %s", pr.Address, err)
		}
	}
}

// =============================================================================
// Inbound counterparts of the gossip calls above.

// Discover handles an inbound discovery handshake: remember the caller and
// hand back our peer list and chain length. A previously unknown caller also
// gets the latest block pushed so it can catch up without a full sync.
func (s *State) Discover(callerAddress string) ([]string, int) {
	var isNew bool
	if callerAddress != "" && callerAddress != s.host {
		if s.knownPeers.Add(peer.New(callerAddress)) {
			s.evHandler("state: Discover: new peer[%s]", callerAddress)
			isNew = true
		}
	}

	s.mu.Lock()
	length := s.chain.Length()
	latest := s.chain.Latest()
	s.mu.Unlock()

	if isNew && length > 1 {
		go s.pushLatestBlock(peer.New(callerAddress), latest)
	}

	return s.knownPeers.Addresses(callerAddress), length
}

// MergePeers unions the specified addresses into the known peer set and
// returns the ones that were new. Peer lists are merged, never replaced. The
// new peers get the latest block pushed when the chain is past genesis.
func (s *State) MergePeers(addresses []string) []peer.Peer {
	added := s.knownPeers.AddAll(addresses, s.host)
	for _, p := range added {
		s.evHandler("state: MergePeers: new peer[%s]", p.Address)
	}

	if len(added) > 0 {
		s.mu.Lock()
		length := s.chain.Length()
		latest := s.chain.Latest()
		s.mu.Unlock()

		if length > 1 {
			for _, p := range added {
				go s.pushLatestBlock(p, latest)
			}
		}
	}

	return added
}

// pushLatestBlock offers the head block to a newly met peer. Best effort; a
// peer that can't take it will catch up through its own sync.
func (s *State) pushLatestBlock(pr peer.Peer, b chain.Block) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.client.Send(ctx, http.MethodPost, pr.Address+"/add_block", b, nil); err != nil {
		s.evHandler("state: pushLatestBlock: WARNING: peer[%s]: %s", pr.Address, err)
	}
}
