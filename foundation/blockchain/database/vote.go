package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/votechain/foundation/validate"
)

// ErrInvalidVote is returned when a vote is missing the voter or candidate.
var ErrInvalidVote = errors.New("vote requires a voter id and a candidate")

// =============================================================================

// Vote is a single ballot cast by an allow-listed voter.
type Vote struct {
	VoterID   string `json:"voter_id" validate:"required"`
	Candidate string `json:"candidate" validate:"required"`
}

// NewVote constructs a new vote.
func NewVote(voterID string, candidate string) (Vote, error) {
	vote := Vote{
		VoterID:   voterID,
		Candidate: candidate,
	}

	if err := validate.Check(vote); err != nil {
		return Vote{}, fmt.Errorf("%w: %w", ErrInvalidVote, err)
	}

	return vote, nil
}

// String implements the fmt.Stringer interface for logging.
func (v Vote) String() string {
	return fmt.Sprintf("%s:%s", v.VoterID, v.Candidate)
}

// copyVotes returns a copy of the votes so a sealed block never shares its
// backing array with a caller.
func copyVotes(votes []Vote) []Vote {
	cpy := make([]Vote, len(votes))
	copy(cpy, votes)
	return cpy
}
