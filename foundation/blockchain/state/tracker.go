package state

import (
	"context"
	"net/http"
	"time"
)

// Wire representations shared with the tracker service.
type (
	trackerRegisterRequest struct {
		Address string `json:"address"`
	}

	trackerRegisterResponse struct {
		Peers []string `json:"peers"`
	}
)

// TrackerRegister announces this node to the tracker and merges the peer
// list the tracker hands back. Nodes run fine without a tracker; an empty
// tracker URL disables all tracker calls.
func (s *State) TrackerRegister(ctx context.Context) error {
	if s.trackerURL == "" {
		return nil
	}

	s.evHandler("state: TrackerRegister: started: tracker[%s]", s.trackerURL)
	defer s.evHandler("state: TrackerRegister: completed")

	req := trackerRegisterRequest{
		Address: s.host,
	}

	var resp trackerRegisterResponse
	if err := s.client.Send(ctx, http.MethodPost, s.trackerURL+"/register", req, &resp); err != nil {
		return err
	}

	added := s.knownPeers.AddAll(resp.Peers, s.host)
	for _, p := range added {
		s.evHandler("state: TrackerRegister: learned peer[%s]", p.Address)
	}

	return nil
}

// TrackerUnregister tells the tracker this node is going away. Best effort
// during shutdown.
func (s *State) TrackerUnregister() {
	if s.trackerURL == "" {
		return
	}

	s.evHandler("state: TrackerUnregister: started: tracker[%s]", s.trackerURL)
	defer s.evHandler("state: TrackerUnregister: completed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := trackerRegisterRequest{
		Address: s.host,
	}

	if err := s.client.Send(ctx, http.MethodPost, s.trackerURL+"/unregister", req, nil); err != nil {
		s.evHandler("state: TrackerUnregister: WARNING: %s", err)
	}
}

// RefreshPeers re-registers with the tracker when the node finds itself
// without peers, which happens after partitions or when every known peer
// went away.
func (s *State) RefreshPeers(ctx context.Context) {
	if len(s.RetrieveKnownPeers()) > 0 {
		return
	}

	s.evHandler("state: RefreshPeers: no known peers, re-registering with tracker")

	if err := s.TrackerRegister(ctx); err != nil {
		s.evHandler("state: RefreshPeers: WARNING: %s", err)
	}
}
