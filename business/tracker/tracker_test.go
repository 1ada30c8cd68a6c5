package tracker_test

import (
	"testing"
	"time"

	"github.com/nac-codes/blockbard/business/tracker"
)

func Test_RegisterAndPeers(t *testing.T) {
	r := tracker.New(time.Minute)

	peers := r.Register("http://node1:8080")
	if len(peers) != 0 {
		t.Fatalf("Test:\tShould hand the first node an empty peer list, got %d.", len(peers))
	}

	peers = r.Register("http://node2:8080")
	if len(peers) != 1 || peers[0] != "http://node1:8080" {
		t.Fatalf("Test:\tShould hand a new node the other live peers, got %v.", peers)
	}

	// Re-registration refreshes, never duplicates.
	r.Register("http://node1:8080")
	if r.Count() != 2 {
		t.Fatalf("Test:\tShould keep one entry per address, got %d.", r.Count())
	}

	r.Unregister("http://node1:8080")
	if r.Count() != 1 {
		t.Fatalf("Test:\tShould forget an unregistered node, got %d.", r.Count())
	}
}

func Test_Eviction(t *testing.T) {
	r := tracker.New(10 * time.Millisecond)

	r.Register("http://node1:8080")
	time.Sleep(25 * time.Millisecond)
	r.Register("http://node2:8080")

	peers := r.Peers("")
	if len(peers) != 1 || peers[0] != "http://node2:8080" {
		t.Fatalf("Test:\tShould evict nodes unseen past the TTL, got %v.", peers)
	}
}
