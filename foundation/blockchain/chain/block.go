// Package chain implements the blockchain engine: blocks, hashing, proof of
// work, validation, difficulty adjustment, and quality scoring.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// GenesisPrevHash is the previous hash carried by the genesis block.
const GenesisPrevHash = "0"

// Block represents one contribution in the chain. Once the hash is set the
// block is immutable. Any field change invalidates the hash and is caught by
// validation.
type Block struct {
	Index         uint64    `json:"index"`
	TimeStamp     time.Time `json:"timestamp"`
	Data          string    `json:"data"`
	PrevBlockHash string    `json:"previous_hash"`
	Hash          string    `json:"hash"`
	Difficulty    uint32    `json:"difficulty"`
	Nonce         uint64    `json:"nonce"`
	StoryPosition Position  `json:"story_position"`
}

// CalculateHash returns the sha256 of the block's canonical JSON form: every
// field except the hash itself, with map keys sorted for determinism. It is a
// pure function of the block's fields.
func (b Block) CalculateHash() string {
	position := map[string]any{
		"position_id":          b.StoryPosition.PositionID,
		"previous_position_id": b.StoryPosition.PrevPositionID,
	}
	if b.StoryPosition.Metadata != nil {
		position["metadata"] = b.StoryPosition.Metadata
	}

	canonical := map[string]any{
		"index":          b.Index,
		"timestamp":      b.TimeStamp.UTC().Format(time.RFC3339Nano),
		"data":           b.Data,
		"previous_hash":  b.PrevBlockHash,
		"difficulty":     b.Difficulty,
		"nonce":          b.Nonce,
		"story_position": position,
	}

	data, err := json.Marshal(canonical)
	if err != nil {

		// Marshaling a map of strings, numbers, and decoded JSON values
		// can't fail. Returning an empty hash keeps the signature clean and
		// fails validation loudly if it ever does.
		return ""
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// isHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint32, hash string) bool {
	const match = "00000000000000000000000000000000"

	if len(hash) != 64 {
		return false
	}
	if int(difficulty) > len(match) {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}
