package chain_test

import (
	"testing"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
)

func Test_ExtractPosition(t *testing.T) {
	t.Run("structured is key order independent", func(t *testing.T) {
		a, srcA := chain.ExtractPosition(`{"text":"x","storyPosition":{"book":"one","chapter":1,"verse":2}}`, 1, "")
		b, srcB := chain.ExtractPosition(`{"storyPosition":{"verse":2,"book":"one","chapter":1},"text":"y"}`, 7, "")

		if srcA != chain.SourceStructured || srcB != chain.SourceStructured {
			t.Fatalf("Test:\tShould extract a structured position from both payloads.")
		}

		if a.PositionID != b.PositionID {
			t.Logf("Test:\tgot: %s", b.PositionID)
			t.Logf("Test:\texp: %s", a.PositionID)
			t.Fatalf("Test:\tShould derive the same id regardless of JSON key order or index.")
		}
	})

	t.Run("fallback is deterministic per index", func(t *testing.T) {
		a, srcA := chain.ExtractPosition("plain text", 3, "")
		b, _ := chain.ExtractPosition("completely different text", 3, "")
		c, _ := chain.ExtractPosition("plain text", 4, "")

		if srcA != chain.SourceFallback {
			t.Fatalf("Test:\tShould fall back for an unstructured payload.")
		}

		if a.PositionID != b.PositionID {
			t.Fatalf("Test:\tShould give every payload at one index the same fallback id.")
		}

		if a.PositionID == c.PositionID {
			t.Fatalf("Test:\tShould give different indexes different fallback ids.")
		}
	})

	t.Run("non json payload", func(t *testing.T) {
		p, src := chain.ExtractPosition(`{"text":"json but no position"}`, 1, "prev-id")

		if src != chain.SourceFallback {
			t.Fatalf("Test:\tShould fall back when the JSON has no storyPosition.")
		}

		if p.PrevPositionID != "prev-id" {
			t.Fatalf("Test:\tShould thread the predecessor position id through.")
		}
	})
}
