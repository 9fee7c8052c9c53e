package public

import (
	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/ardanlabs/votechain/foundation/validate"
)

type submitVote struct {
	VoterID   string `json:"voter_id" validate:"required"`
	Candidate string `json:"candidate" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (sv submitVote) Validate() error {
	return validate.Check(sv)
}

type status struct {
	Status string `json:"status"`
}

type mined struct {
	Index uint64 `json:"index"`
	Hash  string `json:"hash"`
	Votes int    `json:"votes"`
}

type pending struct {
	Count int             `json:"count"`
	Votes []database.Vote `json:"votes"`
}

type tally struct {
	LatestBlock uint64         `json:"latest_block"`
	Candidates  map[string]int `json:"candidates"`
}

type validation struct {
	Valid  bool   `json:"valid"`
	Length int    `json:"length"`
	Error  string `json:"error,omitempty"`
}

type genesis struct {
	Hash       string   `json:"hash"`
	Date       string   `json:"date"`
	Difficulty uint     `json:"difficulty"`
	Voters     []string `json:"voters"`
}

func toBlockData(blocks []database.Block) []database.BlockData {
	blockData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		blockData[i] = database.NewBlockData(block)
	}
	return blockData
}
