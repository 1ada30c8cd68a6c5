package chain_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
	"github.com/nac-codes/blockbard/foundation/blockchain/genesis"
)

// nopEv satisfies the event handler parameter without producing output.
func nopEv(v string, args ...any) {}

// testGenesis returns genesis settings tuned for tests: difficulty 1 keeps
// the proof of work fast and a current date keeps the difficulty adjustment
// window honest.
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

// mineNext builds and solves the next block for the payload.
func mineNext(t *testing.T, c *chain.Chain, data string) chain.Block {
	t.Helper()

	b := c.BuildCandidate(data)
	if err := chain.POW(context.Background(), &b, nopEv); err != nil {
		t.Fatalf("Test:\tShould be able to solve the POW: %s", err)
	}

	return b
}

func Test_GenesisDeterminism(t *testing.T) {
	gen := genesis.Default()

	c1 := chain.New(gen, nopEv)
	c2 := chain.New(gen, nopEv)

	g1 := c1.Latest()
	g2 := c2.Latest()

	if g1.Hash != g2.Hash {
		t.Logf("Test:\tgot: %s", g2.Hash)
		t.Logf("Test:\texp: %s", g1.Hash)
		t.Fatalf("Test:\tShould derive the identical genesis hash on every node.")
	}

	if g1.Index != 0 {
		t.Fatalf("Test:\tShould have index 0 for the genesis block, got %d.", g1.Index)
	}

	if g1.PrevBlockHash != chain.GenesisPrevHash {
		t.Fatalf("Test:\tShould have previous hash %q for the genesis block, got %q.", chain.GenesisPrevHash, g1.PrevBlockHash)
	}

	if g1.Hash != g1.CalculateHash() {
		t.Fatalf("Test:\tShould have a genesis hash matching its contents.")
	}
}

func Test_MineAndValidate(t *testing.T) {
	c := chain.New(testGenesis(), nopEv)

	payloads := []string{
		`{"text":"It begins.","storyPosition":{"book":"genesis","chapter":1,"verse":1}}`,
		`{"text":"It continues.","storyPosition":{"book":"genesis","chapter":1,"verse":2}}`,
		"a payload with no structure at all",
	}

	for _, data := range payloads {
		b := mineNext(t, c, data)

		if err := c.AddBlock(b); err != nil {
			t.Fatalf("Test:\tShould be able to add mined block %d: %s", b.Index, err)
		}
	}

	if c.Length() != len(payloads)+1 {
		t.Logf("Test:\tgot: %d", c.Length())
		t.Logf("Test:\texp: %d", len(payloads)+1)
		t.Fatalf("Test:\tShould have one block per payload plus genesis.")
	}

	blocks := c.Blocks()
	for i := 1; i < len(blocks); i++ {
		if blocks[i].PrevBlockHash != blocks[i-1].Hash {
			t.Fatalf("Test:\tShould have block %d linking to its parent.", i)
		}
	}

	if err := c.Validate(chain.ModeStrict); err != nil {
		t.Fatalf("Test:\tShould have a chain passing strict validation: %s", err)
	}
}

func Test_HashIntegrity(t *testing.T) {
	c := chain.New(testGenesis(), nopEv)

	b := mineNext(t, c, "original payload")

	if b.CalculateHash() != b.Hash {
		t.Fatalf("Test:\tShould have a hash matching the block contents.")
	}

	tampered := b
	tampered.Data = "rewritten payload"

	if tampered.CalculateHash() == tampered.Hash {
		t.Fatalf("Test:\tShould compute a different hash after the payload changed.")
	}

	if err := c.AddBlock(tampered); err == nil {
		t.Fatalf("Test:\tShould reject a block whose contents don't match its hash.")
	}

	if err := c.AddBlock(b); err != nil {
		t.Fatalf("Test:\tShould accept the untampered block: %s", err)
	}
}

func Test_DuplicatePosition(t *testing.T) {
	const payload = `{"text":"mine","storyPosition":{"book":"genesis","chapter":1,"verse":1}}`
	const rival = `{"text":"no mine","storyPosition":{"book":"genesis","chapter":1,"verse":1}}`

	c := chain.New(testGenesis(), nopEv)

	b1 := mineNext(t, c, payload)
	if err := c.AddBlock(b1); err != nil {
		t.Fatalf("Test:\tShould be able to add the first block: %s", err)
	}

	// A different payload claiming the same story position.
	b2 := mineNext(t, c, rival)

	err := c.AddBlock(b2)
	if err == nil {
		t.Fatalf("Test:\tShould reject a block reusing an occupied story position.")
	}
	if !errors.Is(err, chain.ErrDuplicatePosition) {
		t.Fatalf("Test:\tShould report the duplicate position error, got: %s", err)
	}

	// During fork resolution the same chain is tolerated and only penalized.
	withDup := append(c.Blocks(), b2)

	if err := chain.ValidateBlocks(withDup, chain.ModeStrict, nopEv); err == nil {
		t.Fatalf("Test:\tShould fail strict validation with a duplicate position.")
	}

	if err := chain.ValidateBlocks(withDup, chain.ModeRelaxed, nopEv); err != nil {
		t.Fatalf("Test:\tShould pass relaxed validation with a duplicate position: %s", err)
	}
}

func Test_SerializationRoundTrip(t *testing.T) {
	c := chain.New(testGenesis(), nopEv)

	b := mineNext(t, c, `{"text":"over the wire","storyPosition":{"book":"exodus","chapter":2,"verse":7}}`)

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Test:\tShould be able to marshal a block: %s", err)
	}

	var back chain.Block
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Test:\tShould be able to unmarshal a block: %s", err)
	}

	if back.CalculateHash() != b.Hash {
		t.Logf("Test:\tgot: %s", back.CalculateHash())
		t.Logf("Test:\texp: %s", b.Hash)
		t.Fatalf("Test:\tShould compute the identical hash after a wire round trip.")
	}
}

func Test_POWCancel(t *testing.T) {
	c := chain.New(testGenesis(), nopEv)
	b := c.BuildCandidate("payload")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := chain.POW(ctx, &b, nopEv); !errors.Is(err, context.Canceled) {
		t.Fatalf("Test:\tShould stop the search when the context is cancelled, got: %v", err)
	}
}

func Test_DifficultyAdjustment(t *testing.T) {
	t.Run("increase", func(t *testing.T) {
		gen := testGenesis()
		gen.AdjustmentInterval = 2
		gen.BlockInterval = 100

		c := chain.New(gen, nopEv)

		// Two blocks mined far faster than the 200s window target.
		for i := 0; i < 2; i++ {
			b := mineNext(t, c, "fast block")
			if err := c.AddBlock(b); err != nil {
				t.Fatalf("Test:\tShould be able to add block: %s", err)
			}
		}

		// Building the candidate at the adjustment boundary retunes.
		c.BuildCandidate("trigger")

		if c.Difficulty() != 2 {
			t.Logf("Test:\tgot: %d", c.Difficulty())
			t.Logf("Test:\texp: %d", 2)
			t.Fatalf("Test:\tShould increase difficulty when blocks arrive too quickly.")
		}
	})

	t.Run("decrease", func(t *testing.T) {
		gen := testGenesis()
		gen.AdjustmentInterval = 2
		gen.BlockInterval = 10
		gen.Date = time.Now().UTC().Add(-time.Hour)

		c := chain.New(gen, nopEv)

		// A crafted slow block: an hour after genesis, mined at difficulty 2.
		// Replace installs it without rerunning the POW.
		slow := chain.Block{
			Index:         1,
			TimeStamp:     time.Now().UTC(),
			Data:          "slow block",
			PrevBlockHash: c.Latest().Hash,
			Difficulty:    2,
		}
		slow.Hash = slow.CalculateHash()
		c.Replace([]chain.Block{c.Latest(), slow})

		c.BuildCandidate("trigger")

		if c.Difficulty() != 1 {
			t.Logf("Test:\tgot: %d", c.Difficulty())
			t.Logf("Test:\texp: %d", 1)
			t.Fatalf("Test:\tShould decrease difficulty when blocks arrive too slowly.")
		}
	})
}
