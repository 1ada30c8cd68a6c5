package peer_test

import (
	"testing"

	"github.com/nac-codes/blockbard/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Address: "http://host1:8080"}, {Address: "http://host2:8080"}, {Address: "http://host3:8080"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, p := range tst.peers {
				ps.Add(p)
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			peers = ps.Copy("http://host2:8080")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould exclude the specified address.", tst.name)
			}

			ps.Remove(peer.New("http://host1:8080"))
			if ps.Count() != len(tst.peers)-1 {
				t.Fatalf("Test %s:\tShould remove a peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_AddAll(t *testing.T) {
	ps := peer.NewPeerSet()
	ps.Add(peer.New("http://host1:8080"))

	added := ps.AddAll(
		[]string{"http://host1:8080", "http://host2:8080", "http://self:8080", ""},
		"http://self:8080",
	)

	if len(added) != 1 {
		t.Logf("Test:\tgot: %d", len(added))
		t.Logf("Test:\texp: %d", 1)
		t.Fatalf("Test:\tShould add only the genuinely new peers.")
	}

	if added[0].Address != "http://host2:8080" {
		t.Fatalf("Test:\tShould report the added peer, got %q.", added[0].Address)
	}

	if ps.Count() != 2 {
		t.Fatalf("Test:\tShould never add itself or empty addresses, got %d.", ps.Count())
	}
}
