// Package nodegrp maintains the group of handlers for node to node access
// and story contributions.
package nodegrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	v1 "github.com/nac-codes/blockbard/business/web/v1"
	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
	"github.com/nac-codes/blockbard/foundation/blockchain/state"
	"github.com/nac-codes/blockbard/foundation/events"
	"github.com/nac-codes/blockbard/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Chain returns the full local chain as a bare JSON array of blocks. Content
// agents depend on this exact shape, so no envelope.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// AddBlock accepts a block mined by a peer and fits it into the local chain.
func (h Handlers) AddBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var b chain.Block
	if err := web.Decode(r, &b); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if err := h.State.ProcessPeerBlock(b); err != nil {
		switch {
		case errors.Is(err, chain.ErrDuplicatePosition),
			errors.Is(err, state.ErrChainBehind),
			errors.Is(err, state.ErrBlockNotNeeded):
			return v1.NewRequestError(err, http.StatusConflict)
		default:
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
	}

	resp := addBlockResponse{
		Message: "block accepted",
		Index:   b.Index,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// AddContribution accepts a story contribution and queues it for mining. The
// submitter declares the head it built on; a stale head comes back as a
// conflict carrying the current head so the client can rebuild and retry.
func (h Handlers) AddContribution(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var contrib addContribution
	if err := web.Decode(r, &contrib); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	result, err := h.State.SubmitContribution(contrib.Data, contrib.PrevHash)
	if err != nil {
		if she := state.GetStaleHead(err); she != nil {
			resp := staleHeadResponse{
				Error:            she.Error(),
				ExpectedPrevHash: she.ExpectedPrevHash,
				ChainLength:      she.ChainLength,
			}
			return web.Respond(ctx, w, resp, http.StatusConflict)
		}

		if errors.Is(err, chain.ErrDuplicatePosition) {
			return v1.NewRequestError(err, http.StatusConflict)
		}

		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("contribution accepted", "traceid", v.TraceID, "position", result.PositionID, "queued", result.Queued)

	resp := addContributionResponse{
		Message:    "contribution queued for mining",
		PositionID: result.PositionID,
		Queued:     result.Queued,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Mine queues a payload for mining without the head check. The mining itself
// runs asynchronously, so the response is just an acknowledgement.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mineRequest
	if err := web.Decode(r, &req); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	result := h.State.RequestMining(req.Data)

	resp := mineResponse{
		Message:    "mining requested",
		PositionID: result.PositionID,
		Queued:     result.Queued,
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// Discover handles the discovery handshake: the caller introduces itself and
// receives our peer list and chain length.
func (h Handlers) Discover(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req discoverRequest
	if err := web.Decode(r, &req); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	peers, length := h.State.Discover(req.Address)

	resp := discoverResponse{
		Peers:       peers,
		ChainLength: length,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UpdatePeers merges a peer list pushed by another node into our own.
func (h Handlers) UpdatePeers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req updatePeersRequest
	if err := web.Decode(r, &req); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	added := h.State.MergePeers(req.Peers)

	resp := updatePeersResponse{
		Message: "peers merged",
		Added:   len(added),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AutoMine toggles the periodic auto mining loop.
func (h Handlers) AutoMine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req autoMineRequest
	if err := web.Decode(r, &req); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.State.SetAutoMine(req.Enable, time.Duration(req.Interval)*time.Second)

	msg := "auto mining disabled"
	if req.Enable {
		msg = "auto mining enabled"
	}

	resp := autoMineResponse{
		Message: msg,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the node's view of itself and the network.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(ev); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
