package chain

import (
	"time"

	"github.com/nac-codes/blockbard/foundation/blockchain/genesis"
)

// Chain owns the ordered list of blocks and the engine's current difficulty.
// It is not safe for concurrent use. The node runtime guards it with its one
// mutex and only ever hands out copies.
type Chain struct {
	genesis    genesis.Genesis
	blocks     []Block
	difficulty uint32
	evHandler  func(v string, args ...any)
}

// New constructs a chain holding just the genesis block built from the
// specified genesis settings.
func New(gen genesis.Genesis, evHandler func(v string, args ...any)) *Chain {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	c := Chain{
		genesis:    gen,
		difficulty: gen.Difficulty,
		evHandler:  ev,
	}
	c.blocks = []Block{GenesisBlock(gen)}

	return &c
}

// GenesisBlock constructs block 0 from the genesis settings. The timestamp
// is fixed so every node derives the identical genesis hash.
func GenesisBlock(gen genesis.Genesis) Block {
	b := Block{
		Index:         0,
		TimeStamp:     gen.Date,
		Data:          gen.Data,
		PrevBlockHash: GenesisPrevHash,
		Difficulty:    gen.Difficulty,
	}
	b.Hash = b.CalculateHash()

	return b
}

// Genesis returns the genesis settings.
func (c *Chain) Genesis() genesis.Genesis {
	return c.genesis
}

// Length returns the number of blocks in the chain.
func (c *Chain) Length() int {
	return len(c.blocks)
}

// Latest returns the most recent block in the chain.
func (c *Chain) Latest() Block {
	return c.blocks[len(c.blocks)-1]
}

// Difficulty returns the difficulty the next mined block will carry.
func (c *Chain) Difficulty() uint32 {
	return c.difficulty
}

// Blocks returns a copy of the block list. Only copies ever leave the engine
// so callers can't mutate chain state from outside the runtime's lock.
func (c *Chain) Blocks() []Block {
	blocks := make([]Block, len(c.blocks))
	copy(blocks, c.blocks)
	return blocks
}

// HasPosition reports whether any non-genesis block in the chain already
// occupies the specified story position.
func (c *Chain) HasPosition(positionID string) bool {
	for _, b := range c.blocks[1:] {
		if b.StoryPosition.PositionID == positionID {
			return true
		}
	}
	return false
}

// BuildCandidate constructs the block to be mined for the specified payload:
// the next index, the current wall clock, the latest hash, the engine's
// current difficulty, and the story position extracted from the payload. The
// candidate still needs its proof of work performed.
func (c *Chain) BuildCandidate(data string) Block {
	prev := c.Latest()
	index := prev.Index + 1

	// Every adjustment interval, retune the difficulty against the observed
	// mining speed before constructing the candidate.
	if interval := uint64(c.genesis.AdjustmentInterval); interval > 0 && index%interval == 0 {
		c.adjustDifficulty()
	}

	pos, source := ExtractPosition(data, index, prev.StoryPosition.PositionID)
	if source == SourceFallback {
		c.evHandler("chain: BuildCandidate: blk[%d]: payload has no structured story position, using fallback id[%s]", index, pos.PositionID[:8])
	}

	return Block{
		Index:         index,
		TimeStamp:     time.Now().UTC(),
		Data:          data,
		PrevBlockHash: prev.Hash,
		Difficulty:    c.difficulty,
		StoryPosition: pos,
	}
}

// adjustDifficulty compares the elapsed time over the last adjustment window
// against the target and moves the difficulty one step: up when blocks arrive
// in under half the target, down (floored at 1) when they take more than
// double.
func (c *Chain) adjustDifficulty() {
	latest := c.Latest()
	interval := uint64(c.genesis.AdjustmentInterval)

	firstIdx := uint64(0)
	if latest.Index+1 > interval {
		firstIdx = latest.Index + 1 - interval
	}
	first := c.blocks[firstIdx]

	timeTaken := latest.TimeStamp.Sub(first.TimeStamp).Seconds()
	timeExpected := float64(c.genesis.BlockInterval) * float64(c.genesis.AdjustmentInterval)

	switch {
	case timeTaken < timeExpected/2:
		c.difficulty++
		c.evHandler("chain: adjustDifficulty: increased to %d: blocks mined too quickly: took[%.1fs] expected[%.1fs]", c.difficulty, timeTaken, timeExpected)

	case timeTaken > timeExpected*2 && c.difficulty > 1:
		c.difficulty--
		c.evHandler("chain: adjustDifficulty: decreased to %d: blocks mined too slowly: took[%.1fs] expected[%.1fs]", c.difficulty, timeTaken, timeExpected)
	}
}

// AddBlock validates the specified block as the next block in the chain and
// appends it. Story position uniqueness is enforced strictly.
func (c *Chain) AddBlock(b Block) error {
	if err := ValidateNextBlock(b, c.Latest(), c.positions(), ModeStrict, c.evHandler); err != nil {
		return err
	}

	c.blocks = append(c.blocks, b)
	return nil
}

// Replace swaps the entire block list for the specified one and takes over
// its difficulty. The caller is responsible for having validated the new
// chain first.
func (c *Chain) Replace(blocks []Block) {
	c.blocks = make([]Block, len(blocks))
	copy(c.blocks, blocks)
	c.difficulty = blocks[len(blocks)-1].Difficulty
}

// Validate runs full chain validation over the current block list.
func (c *Chain) Validate(mode ValidateMode) error {
	return ValidateBlocks(c.blocks, mode, c.evHandler)
}

// Score computes the quality score of the current block list.
func (c *Chain) Score() int {
	return Score(c.blocks)
}

// positions returns the set of story positions occupied by non-genesis
// blocks, keyed to the block index that holds each one.
func (c *Chain) positions() map[string]uint64 {
	positions := make(map[string]uint64, len(c.blocks)-1)
	for _, b := range c.blocks[1:] {
		positions[b.StoryPosition.PositionID] = b.Index
	}
	return positions
}
