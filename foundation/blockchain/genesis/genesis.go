// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time `json:"date"`       // Time recorded in the genesis block. Every node must agree on it.
	Difficulty uint      `json:"difficulty"` // Number of leading zero nibbles a block hash needs.
	Voters     []string  `json:"voters"`     // Voter ids allowed to cast a vote.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if genesis.Difficulty == 0 {
		genesis.Difficulty = database.DefaultDifficulty
	}

	return genesis, nil
}

// Block constructs the genesis block described by the file.
func (g Genesis) Block() database.Block {
	return database.NewGenesis(Timestamp(g.Date))
}

// Timestamp converts the time into the fractional unix seconds recorded in
// a block.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}
