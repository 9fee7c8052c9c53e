package database

import (
	"context"
	"strings"

	"github.com/ardanlabs/votechain/foundation/blockchain/signature"
)

// DefaultDifficulty is the number of leading zero nibbles a block hash needs
// when no difficulty is configured.
const DefaultDifficulty = 4

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Difficulty uint
	PrevBlock  Block
	Votes      []Vote
	Timestamp  float64
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a proof that
// solves the cryptographic POW puzzle. The returned block is not sealed; the
// hash that solved the puzzle is returned alongside it so the block can be
// passed through admission.
func POW(ctx context.Context, args POWArgs) (Block, string, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	// Construct the block to be mined.
	nb := Block{
		Index:        args.PrevBlock.Index + 1,
		PreviousHash: args.PrevBlock.Hash,
		Votes:        copyVotes(args.Votes),
		Timestamp:    args.Timestamp,
		Proof:        0, // Will be identified by the POW algorithm.
	}

	hash, err := nb.performPOW(ctx, args.Difficulty, ev)
	if err != nil {
		return Block{}, "", err
	}

	return nb, hash, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a proof is being discovered.
func (b *Block) performPOW(ctx context.Context, difficulty uint, ev func(v string, args ...any)) (string, error) {
	ev("database: PerformPOW: MINING: started: blk[%d]", b.Index)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Index)

	// Log the votes that are a part of this potential block.
	for _, vote := range b.Votes {
		ev("database: PerformPOW: MINING: vote[%s]", vote)
	}

	var attempts uint64
	for b.Proof = 0; ; b.Proof++ {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return "", ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash, err := b.Digest()
		if err != nil {
			return "", err
		}

		if !IsHashSolved(difficulty, hash) {
			continue
		}

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PreviousHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return hash, nil
	}
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading 0's.
func IsHashSolved(difficulty uint, hash string) bool {
	if len(hash) != signature.HashLength || difficulty > signature.HashLength {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}

// IsValidProof reports if the claimed hash solves the puzzle and matches the
// block content. This catches both an insufficient proof and a hash that was
// forged independent of the content. Content without a canonical encoding
// never proves anything.
func IsValidProof(block Block, claimedHash string, difficulty uint) bool {
	if !IsHashSolved(difficulty, claimedHash) {
		return false
	}

	hash, err := block.Digest()
	if err != nil {
		return false
	}

	return claimedHash == hash
}
