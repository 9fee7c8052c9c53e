package state

import (
	"github.com/ardanlabs/votechain/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers. A
// range past the tip is cut at the tip.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	latest := s.db.LatestBlock().Index

	if from == QueryLatest {
		from = latest
	}
	if to == QueryLatest || to > latest {
		to = latest
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			s.evHandler("state: QueryBlocksByNumber: ERROR: %s", err)
			return nil
		}
		out = append(out, block)
	}

	return out
}

// QueryVoted reports if the voter has already cast a vote.
func (s *State) QueryVoted(voterID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.voted[voterID]
	return exists
}

// QueryTally counts the votes per candidate recorded in the chain. Pending
// votes are not counted.
func (s *State) QueryTally() map[string]int {
	tally := make(map[string]int)
	for _, block := range s.db.Copy() {
		for _, vote := range block.Votes {
			tally[vote.Candidate]++
		}
	}

	return tally
}
