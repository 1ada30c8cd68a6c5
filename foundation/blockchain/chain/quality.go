package chain

// The penalty constants are tuning knobs, not correctness guarantees. The
// duplicate penalty only needs to dominate any plausible length advantage so
// a duplicated chain never beats a clean one; the regression penalty only
// needs to stay well below it so ordering wobbles reorder preference without
// overriding duplicate avoidance.
const (
	duplicatePositionPenalty  = 1000
	positionRegressionPenalty = 10
)

// Score computes the quality score of a chain: its length, minus a large
// constant penalty if any story position appears twice, minus a small penalty
// for every block whose position metadata fails to advance. Fork resolution
// prefers the candidate with the strictly highest score.
func Score(blocks []Block) int {
	score := len(blocks)

	if hasDuplicatePositions(blocks) {
		score -= duplicatePositionPenalty
	}

	for i := 2; i < len(blocks); i++ {
		if positionRegressed(blocks[i-1].StoryPosition, blocks[i].StoryPosition) {
			score -= positionRegressionPenalty
		}
	}

	return score
}

// hasDuplicatePositions reports whether any story position appears on more
// than one non-genesis block.
func hasDuplicatePositions(blocks []Block) bool {
	if len(blocks) < 3 {
		return false
	}

	seen := make(map[string]struct{}, len(blocks)-1)
	for _, b := range blocks[1:] {
		if _, exists := seen[b.StoryPosition.PositionID]; exists {
			return true
		}
		seen[b.StoryPosition.PositionID] = struct{}{}
	}

	return false
}
