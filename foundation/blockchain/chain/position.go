package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Source describes where a story position came from. Payloads that don't
// carry a structured storyPosition object are a normal case, not an error,
// so extraction reports the branch it took instead of failing.
type Source int

// Set of position sources.
const (
	SourceStructured Source = iota + 1
	SourceFallback
)

// Position represents the logical ordering key embedded in a block's payload.
// It is used to detect duplicate or overlapping contributions independent of
// the block's index in the chain.
type Position struct {
	PositionID     string         `json:"position_id"`
	PrevPositionID string         `json:"previous_position_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// payloadEnvelope is the structured form a contribution payload may take.
// Everything outside the storyPosition object is opaque to the engine.
type payloadEnvelope struct {
	StoryPosition map[string]any `json:"storyPosition"`
}

// ExtractPosition derives the story position for a payload destined to become
// the block at the specified index. If the payload is a JSON document with a
// storyPosition object, the position id is the hash of that object in
// canonical form. Any other payload gets a deterministic fallback id keyed by
// the index so independent nodes agree on it.
func ExtractPosition(data string, index uint64, prevPositionID string) (Position, Source) {
	var envelope payloadEnvelope
	if err := json.Unmarshal([]byte(data), &envelope); err == nil && len(envelope.StoryPosition) > 0 {
		pos := Position{
			PositionID:     hashCanonical(envelope.StoryPosition),
			PrevPositionID: prevPositionID,
			Metadata:       envelope.StoryPosition,
		}
		return pos, SourceStructured
	}

	pos := Position{
		PositionID:     hashCanonical(fmt.Sprintf("position/%d", index)),
		PrevPositionID: prevPositionID,
	}
	return pos, SourceFallback
}

// hashCanonical returns the hex encoded sha256 of the value's canonical JSON
// form. Maps marshal with sorted keys at every level, which is what makes
// the hash deterministic across nodes.
func hashCanonical(v any) string {
	data, err := json.Marshal(v)
	if err != nil {

		// The only values hashed here are strings and maps decoded from
		// JSON, which always marshal.
		data = []byte(fmt.Sprintf("%v", v))
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// =============================================================================

// ordering is the book/chapter/verse triple some contributions carry in
// their position metadata.
type ordering struct {
	book    string
	chapter float64
	verse   float64
}

// metadataOrdering pulls the ordered key out of position metadata. The second
// return is false when the metadata doesn't encode one.
func metadataOrdering(meta map[string]any) (ordering, bool) {
	book, ok := meta["book"].(string)
	if !ok {
		return ordering{}, false
	}

	chapter, ok := meta["chapter"].(float64)
	if !ok {
		return ordering{}, false
	}

	verse, ok := meta["verse"].(float64)
	if !ok {
		return ordering{}, false
	}

	return ordering{book: book, chapter: chapter, verse: verse}, true
}

// positionRegressed reports whether a position's ordered metadata fails to
// advance relative to its predecessor's: the chapter moves backward, or the
// verse doesn't increase within the same chapter. Different books can't be
// ordered against each other and never regress.
func positionRegressed(prev Position, cur Position) bool {
	prevOrd, ok := metadataOrdering(prev.Metadata)
	if !ok {
		return false
	}

	curOrd, ok := metadataOrdering(cur.Metadata)
	if !ok {
		return false
	}

	if prevOrd.book != curOrd.book {
		return false
	}

	if curOrd.chapter < prevOrd.chapter {
		return true
	}

	if curOrd.chapter == prevOrd.chapter && curOrd.verse <= prevOrd.verse {
		return true
	}

	return false
}
