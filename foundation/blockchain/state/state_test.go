package state_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
	"github.com/nac-codes/blockbard/foundation/blockchain/genesis"
	"github.com/nac-codes/blockbard/foundation/blockchain/peer"
	"github.com/nac-codes/blockbard/foundation/blockchain/state"
)

// stubWorker records the signals the state sends. The tests drive the state
// directly, so nothing runs in the background.
type stubWorker struct {
	startMining  int
	cancelMining int
	syncs        int
}

func (w *stubWorker) Shutdown()           {}
func (w *stubWorker) SignalStartMining()  { w.startMining++ }
func (w *stubWorker) SignalCancelMining() { w.cancelMining++ }
func (w *stubWorker) SignalSync()         { w.syncs++ }

func nopEv(v string, args ...any) {}

// testGenesis keeps the proof of work fast and the difficulty window honest.
func testGenesis() genesis.Genesis {
	return genesis.Genesis{
		Date:               time.Now().UTC(),
		Data:               "Genesis Block",
		Difficulty:         1,
		MiningReward:       1.0,
		BlockInterval:      10,
		AdjustmentInterval: 10,
	}
}

// newTestState constructs a state with a stub worker and no tracker.
func newTestState(t *testing.T) (*state.State, *stubWorker) {
	t.Helper()

	st, err := state.New(state.Config{
		Host:       "http://localhost:8080",
		Genesis:    testGenesis(),
		KnownPeers: peer.NewPeerSet(),
		EvHandler:  nopEv,
	})
	if err != nil {
		t.Fatalf("Test:\tShould be able to construct the state: %s", err)
	}

	w := stubWorker{}
	st.Worker = &w

	return st, &w
}

// minePeerBlock solves the next block for a mirror chain the test controls.
func minePeerBlock(t *testing.T, c *chain.Chain, data string) chain.Block {
	t.Helper()

	b := c.BuildCandidate(data)
	if err := chain.POW(context.Background(), &b, nopEv); err != nil {
		t.Fatalf("Test:\tShould be able to solve the POW: %s", err)
	}
	if err := c.AddBlock(b); err != nil {
		t.Fatalf("Test:\tShould be able to add block to the mirror chain: %s", err)
	}

	return b
}

func Test_SubmitContribution(t *testing.T) {
	st, w := newTestState(t)
	head := st.RetrieveLatestBlock().Hash

	const payload = `{"text":"first","storyPosition":{"book":"one","chapter":1,"verse":1}}`

	// A submission built on a stale head must come back with the real one.
	_, err := st.SubmitContribution(payload, "not-the-head")
	if !state.IsStaleHead(err) {
		t.Fatalf("Test:\tShould reject a stale previous hash, got: %v", err)
	}

	she := state.GetStaleHead(err)
	if she.ExpectedPrevHash != head {
		t.Logf("Test:\tgot: %s", she.ExpectedPrevHash)
		t.Logf("Test:\texp: %s", head)
		t.Fatalf("Test:\tShould carry the current head in the stale head error.")
	}

	// The same submission against the real head is queued. Auto mining is
	// off, so queueing is all that happens.
	result, err := st.SubmitContribution(payload, head)
	if err != nil {
		t.Fatalf("Test:\tShould accept a contribution on the current head: %s", err)
	}
	if result.PositionID == "" {
		t.Fatalf("Test:\tShould extract a story position id.")
	}
	if w.startMining != 0 {
		t.Fatalf("Test:\tShould not signal mining while auto mining is disabled, got %d.", w.startMining)
	}

	// A second payload claiming the same story position can't join the queue.
	_, err = st.SubmitContribution(`{"text":"rival","storyPosition":{"book":"one","chapter":1,"verse":1}}`, head)
	if !errors.Is(err, chain.ErrDuplicatePosition) {
		t.Fatalf("Test:\tShould reject a position already waiting in the pool, got: %v", err)
	}

	// With auto mining on, an idle node kicks off a mining pass for the next
	// accepted contribution.
	st.SetAutoMine(true, 0)
	if _, err := st.SubmitContribution(`{"text":"second","storyPosition":{"book":"one","chapter":1,"verse":2}}`, head); err != nil {
		t.Fatalf("Test:\tShould accept a second contribution: %s", err)
	}
	if w.startMining != 1 {
		t.Fatalf("Test:\tShould signal mining once auto mining is enabled, got %d.", w.startMining)
	}
}

func Test_MineNewBlock(t *testing.T) {
	st, _ := newTestState(t)
	head := st.RetrieveLatestBlock().Hash

	if _, err := st.SubmitContribution(`{"text":"first","storyPosition":{"book":"one","chapter":1,"verse":1}}`, head); err != nil {
		t.Fatalf("Test:\tShould accept the contribution: %s", err)
	}

	if !st.BeginMining() {
		t.Fatalf("Test:\tShould be able to flag mining on.")
	}
	b, err := st.MineNewBlock(context.Background())
	st.EndMining()

	if err != nil {
		t.Fatalf("Test:\tShould mine the queued contribution: %s", err)
	}

	latest := st.RetrieveLatestBlock()
	if latest.Hash != b.Hash {
		t.Fatalf("Test:\tShould have the mined block as the new head.")
	}
	if st.RetrieveChainLength() != 2 {
		t.Fatalf("Test:\tShould have two blocks, got %d.", st.RetrieveChainLength())
	}

	// Nothing queued anymore.
	if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrNoContributions) {
		t.Fatalf("Test:\tShould report an empty queue, got: %v", err)
	}
}

func Test_ProcessPeerBlock(t *testing.T) {
	st, w := newTestState(t)

	// A mirror chain plays the role of the remote peer.
	mirror := chain.New(testGenesis(), nopEv)
	mirror.Replace(st.RetrieveChain())

	b1 := minePeerBlock(t, mirror, `{"text":"first","storyPosition":{"book":"one","chapter":1,"verse":1}}`)

	if err := st.ProcessPeerBlock(b1); err != nil {
		t.Fatalf("Test:\tShould accept the next block from a peer: %s", err)
	}
	if st.RetrieveLatestBlock().Hash != b1.Hash {
		t.Fatalf("Test:\tShould have the peer block as the new head.")
	}
	if w.cancelMining != 1 {
		t.Fatalf("Test:\tShould cancel mining for a new head block, got %d.", w.cancelMining)
	}

	// The same block again lands behind the head and changes nothing.
	err := st.ProcessPeerBlock(b1)
	if !errors.Is(err, state.ErrBlockNotNeeded) {
		t.Fatalf("Test:\tShould not need a block it already has, got: %v", err)
	}

	// A block far ahead of the local head means we must sync.
	b2 := minePeerBlock(t, mirror, `{"text":"second","storyPosition":{"book":"one","chapter":1,"verse":2}}`)
	b3 := minePeerBlock(t, mirror, `{"text":"third","storyPosition":{"book":"one","chapter":1,"verse":3}}`)

	err = st.ProcessPeerBlock(b3)
	if !errors.Is(err, state.ErrChainBehind) {
		t.Fatalf("Test:\tShould report falling behind, got: %v", err)
	}
	if w.syncs != 1 {
		t.Fatalf("Test:\tShould signal a sync when behind, got %d.", w.syncs)
	}

	// The missing block still fits.
	if err := st.ProcessPeerBlock(b2); err != nil {
		t.Fatalf("Test:\tShould accept the missing block: %s", err)
	}
	if err := st.ProcessPeerBlock(b3); err != nil {
		t.Fatalf("Test:\tShould accept the following block: %s", err)
	}
	if st.RetrieveChainLength() != 4 {
		t.Fatalf("Test:\tShould have four blocks, got %d.", st.RetrieveChainLength())
	}
}

func Test_SpliceRepair(t *testing.T) {
	st, _ := newTestState(t)

	// Feed the node a head whose story position regresses, which costs the
	// chain ten quality points.
	mirror := chain.New(testGenesis(), nopEv)
	mirror.Replace(st.RetrieveChain())

	b1 := minePeerBlock(t, mirror, `{"text":"first","storyPosition":{"book":"one","chapter":1,"verse":1}}`)
	regressed := minePeerBlock(t, mirror, `{"text":"backward","storyPosition":{"book":"one","chapter":1,"verse":0}}`)

	if err := st.ProcessPeerBlock(b1); err != nil {
		t.Fatalf("Test:\tShould accept the first block: %s", err)
	}
	if err := st.ProcessPeerBlock(regressed); err != nil {
		t.Fatalf("Test:\tShould accept the regressed block with a warning: %s", err)
	}

	// A rival block at the same index that advances the story scores better
	// and replaces the regressed head through localized repair.
	rival := chain.New(testGenesis(), nopEv)
	rival.Replace([]chain.Block{st.RetrieveChain()[0], b1})
	better := minePeerBlock(t, rival, `{"text":"forward","storyPosition":{"book":"one","chapter":1,"verse":2}}`)

	if err := st.ProcessPeerBlock(better); err != nil {
		t.Fatalf("Test:\tShould adopt the better spliced chain: %s", err)
	}
	if st.RetrieveLatestBlock().Hash != better.Hash {
		t.Fatalf("Test:\tShould have the repaired block as the new head.")
	}

	// A worse rival for the same slot is turned away.
	worse := chain.New(testGenesis(), nopEv)
	worse.Replace([]chain.Block{st.RetrieveChain()[0], b1})
	backward := minePeerBlock(t, worse, `{"text":"backward again","storyPosition":{"book":"one","chapter":1,"verse":0}}`)

	if err := st.ProcessPeerBlock(backward); !errors.Is(err, state.ErrBlockNotNeeded) {
		t.Fatalf("Test:\tShould keep the better chain, got: %v", err)
	}
}

func Test_ResolveConflictsNoPeers(t *testing.T) {
	st, _ := newTestState(t)

	replaced, err := st.ResolveConflicts(context.Background())
	if err != nil {
		t.Fatalf("Test:\tShould resolve quietly with no peers: %s", err)
	}
	if replaced {
		t.Fatalf("Test:\tShould keep the local chain with no peers.")
	}
}

func Test_ResolveConflictsTieBreak(t *testing.T) {
	st, _ := newTestState(t)

	// Two rival forks of equal length and equal quality score, differing only
	// in their head block. Whichever peer answers first, the fork with the
	// lexicographically smaller head hash must win.
	mirrorA := chain.New(testGenesis(), nopEv)
	mirrorA.Replace(st.RetrieveChain())
	headA := minePeerBlock(t, mirrorA, `{"text":"fork a","storyPosition":{"book":"one","chapter":1,"verse":1}}`)

	mirrorB := chain.New(testGenesis(), nopEv)
	mirrorB.Replace(st.RetrieveChain())
	headB := minePeerBlock(t, mirrorB, `{"text":"fork b","storyPosition":{"book":"one","chapter":1,"verse":1}}`)

	exp := headA.Hash
	if headB.Hash < exp {
		exp = headB.Hash
	}

	// Each fork is served by its own peer as a bare JSON array of blocks.
	serve := func(c *chain.Chain) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/get_chain" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(c.Blocks())
		}))
	}

	orders := [][]*chain.Chain{
		{mirrorA, mirrorB},
		{mirrorB, mirrorA},
	}

	for _, order := range orders {
		node, _ := newTestState(t)

		for _, c := range order {
			srv := serve(c)
			defer srv.Close()
			node.MergePeers([]string{srv.URL})
		}

		replaced, err := node.ResolveConflicts(context.Background())
		if err != nil {
			t.Fatalf("Test:\tShould resolve against the peers: %s", err)
		}
		if !replaced {
			t.Fatalf("Test:\tShould adopt one of the longer forks.")
		}

		if got := node.RetrieveLatestBlock().Hash; got != exp {
			t.Logf("Test:\tgot: %s", got)
			t.Logf("Test:\texp: %s", exp)
			t.Fatalf("Test:\tShould adopt the fork with the smaller head hash.")
		}
	}
}
