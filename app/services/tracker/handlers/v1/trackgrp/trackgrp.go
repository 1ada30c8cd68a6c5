// Package trackgrp maintains the group of handlers for tracker access.
package trackgrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nac-codes/blockbard/business/tracker"
	"github.com/nac-codes/blockbard/foundation/client"
	"github.com/nac-codes/blockbard/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of tracker endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	Registry *tracker.Registry
	Client   *client.Client
}

// Register records a node as alive and hands back the other live peers. The
// existing peers get a best effort push of the grown peer list so the
// network learns about the newcomer without waiting for gossip.
func (h Handlers) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req registerRequest
	if err := web.Decode(r, &req); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	peers := h.Registry.Register(req.Address)

	h.Log.Infow("node registered", "traceid", v.TraceID, "address", req.Address, "peers", len(peers))

	go h.pushPeerUpdate(req.Address, peers)

	resp := registerResponse{
		Message: "registered",
		Peers:   peers,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Unregister removes a node from the registry.
func (h Handlers) Unregister(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := web.Decode(r, &req); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Registry.Unregister(req.Address)

	resp := unregisterResponse{
		Message: "unregistered",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Peers returns the current set of live peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	peers := h.Registry.Peers("")

	resp := peersResponse{
		Peers: peers,
		Count: len(peers),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Info provides a banner for anyone poking the root path.
func (h Handlers) Info(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Service string `json:"service"`
		Nodes   int    `json:"nodes"`
	}{
		Service: "blockbard tracker",
		Nodes:   h.Registry.Count(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// pushPeerUpdate notifies the existing peers that the peer list grew. Peers
// that can't be reached get evicted so the directory only hands out live
// addresses. Best effort otherwise.
func (h Handlers) pushPeerUpdate(newAddress string, peers []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := struct {
		Peers []string `json:"peers"`
	}{
		Peers: append(peers, newAddress),
	}

	for _, address := range peers {
		err := h.Client.Send(ctx, http.MethodPost, address+"/update_peers", update, nil)
		switch {
		case err == nil:

		case errors.Is(err, client.ErrUnavailable):
			h.Log.Infow("peer unreachable, evicting", "address", address)
			h.Registry.Unregister(address)

		default:
			h.Log.Infow("peer update push failed", "address", address, "ERROR", err)
		}
	}
}
