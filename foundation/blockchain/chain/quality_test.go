package chain_test

import (
	"testing"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
)

// pos builds a position with book/chapter/verse metadata.
func pos(id string, book string, chapter float64, verse float64) chain.Position {
	return chain.Position{
		PositionID: id,
		Metadata: map[string]any{
			"book":    book,
			"chapter": chapter,
			"verse":   verse,
		},
	}
}

func Test_Score(t *testing.T) {
	type table struct {
		name   string
		blocks []chain.Block
		score  int
	}

	tt := []table{
		{
			name: "clean",
			blocks: []chain.Block{
				{},
				{Index: 1, StoryPosition: pos("a", "one", 1, 1)},
				{Index: 2, StoryPosition: pos("b", "one", 1, 2)},
				{Index: 3, StoryPosition: pos("c", "one", 2, 1)},
			},
			score: 4,
		},
		{
			name: "duplicate position",
			blocks: []chain.Block{
				{},
				{Index: 1, StoryPosition: pos("a", "one", 1, 1)},
				{Index: 2, StoryPosition: pos("b", "one", 1, 2)},
				{Index: 3, StoryPosition: pos("a", "one", 1, 1)},
			},
			score: 4 - 1000,
		},
		{
			name: "single regression",
			blocks: []chain.Block{
				{},
				{Index: 1, StoryPosition: pos("a", "one", 2, 5)},
				{Index: 2, StoryPosition: pos("b", "one", 1, 1)},
			},
			score: 3 - 10,
		},
		{
			name: "same verse counts as regression",
			blocks: []chain.Block{
				{},
				{Index: 1, StoryPosition: pos("a", "one", 1, 1)},
				{Index: 2, StoryPosition: pos("b", "one", 1, 1)},
			},
			score: 3 - 10,
		},
		{
			name: "different books never regress",
			blocks: []chain.Block{
				{},
				{Index: 1, StoryPosition: pos("a", "one", 9, 9)},
				{Index: 2, StoryPosition: pos("b", "two", 1, 1)},
			},
			score: 3,
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			score := chain.Score(tst.blocks)
			if score != tst.score {
				t.Logf("Test %s:\tgot: %d", tst.name, score)
				t.Logf("Test %s:\texp: %d", tst.name, tst.score)
				t.Fatalf("Test %s:\tShould compute the right quality score.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}
