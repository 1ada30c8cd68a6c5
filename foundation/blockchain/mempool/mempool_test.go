package mempool_test

import (
	"testing"

	"github.com/nac-codes/blockbard/foundation/blockchain/mempool"
)

func Test_QueueOrdering(t *testing.T) {
	p := mempool.New()

	p.Add("first", "pos-a", true)
	p.Add("second", "pos-b", true)

	if p.PoolCount() != 2 {
		t.Fatalf("Test:\tShould have two contributions in the pool, got %d.", p.PoolCount())
	}

	data, ok := p.PopContribution()
	if !ok || data != "first" {
		t.Fatalf("Test:\tShould pop contributions in FIFO order, got %q.", data)
	}

	// An interrupted payload jumps the line.
	p.RequeueFront("urgent", "pos-c", true)
	p.PushPending("later", "pos-d", true)

	data, ok = p.PopPending()
	if !ok || data != "urgent" {
		t.Fatalf("Test:\tShould pop the requeued payload first, got %q.", data)
	}

	data, ok = p.PopPending()
	if !ok || data != "later" {
		t.Fatalf("Test:\tShould pop the parked payload next, got %q.", data)
	}

	if _, ok := p.PopPending(); ok {
		t.Fatalf("Test:\tShould report an empty pending queue.")
	}
}

func Test_HasPosition(t *testing.T) {
	p := mempool.New()

	p.Add("structured", "pos-a", true)
	p.Add("fallback", "pos-b", false)
	p.PushPending("parked", "pos-c", true)

	if !p.HasPosition("pos-a") {
		t.Fatalf("Test:\tShould find a structured position waiting in the pool.")
	}

	if !p.HasPosition("pos-c") {
		t.Fatalf("Test:\tShould find a structured position waiting in the pending queue.")
	}

	// Fallback ids aren't final until mined and don't block intake.
	if p.HasPosition("pos-b") {
		t.Fatalf("Test:\tShould not match a fallback position.")
	}

	if p.HasPosition("pos-z") {
		t.Fatalf("Test:\tShould not match an unknown position.")
	}
}
