// Package genesis maintains access to the genesis settings for the chain.
package genesis

import (
	"encoding/json"
	"os"
	"time"
)

// Genesis represents the starting parameters every node must agree on. All
// nodes construct the same genesis block from these values so their chains
// share a common root.
type Genesis struct {
	Date               time.Time `json:"date"`                // Fixed timestamp so the genesis hash is identical on every node.
	Data               string    `json:"data"`                // The payload of the genesis block.
	Difficulty         uint32    `json:"difficulty"`          // Leading zero hex characters required to solve the work problem.
	MiningReward       float64   `json:"mining_reward"`       // Nominal reward for mining a block.
	BlockInterval      uint32    `json:"block_interval"`      // Target seconds between blocks.
	AdjustmentInterval uint32    `json:"adjustment_interval"` // Blocks between difficulty adjustments.
}

// Default returns the genesis settings used when no genesis file exists.
func Default() Genesis {
	return Genesis{
		Date:               time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Data:               "Genesis Block",
		Difficulty:         2,
		MiningReward:       1.0,
		BlockInterval:      10,
		AdjustmentInterval: 10,
	}
}

// Load opens and consumes the genesis file if one exists at the specified
// path, falling back to the defaults when it doesn't.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
