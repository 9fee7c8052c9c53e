package state

import (
	"github.com/ardanlabs/votechain/foundation/blockchain/database"
)

// SubmitVote accepts a vote from an allow-listed voter into the pending
// pool. A voter may vote once for the lifetime of the ledger; there is no
// way to retract or change a vote.
func (s *State) SubmitVote(voterID string, candidate string) error {
	if err := s.addVote(voterID, candidate); err != nil {
		s.evHandler("state: SubmitVote: REJECTED: voter[%s]: %s", voterID, err)
		return err
	}

	s.evHandler("state: SubmitVote: ACCEPTED: voter[%s]", voterID)

	// Let the worker know there is something to mine. When no worker is
	// registered, mining is driven by explicit calls to MineNewBlock.
	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}

func (s *State) addVote(voterID string, candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.allowed[voterID]; !exists {
		return ErrUnauthorized
	}

	if _, exists := s.voted[voterID]; exists {
		return ErrDuplicateVote
	}

	vote, err := database.NewVote(voterID, candidate)
	if err != nil {
		return err
	}

	s.mempool.Add(vote)
	s.voted[voterID] = struct{}{}

	return nil
}
