package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/votechain/foundation/blockchain/signature"
)

// GenesisPrevHash is the previous hash recorded in the genesis block.
const GenesisPrevHash = "0"

// Set of errors returned when a block is checked against the chain.
var (
	ErrStaleProposal = errors.New("block does not extend the current tip")
	ErrInvalidProof  = errors.New("block hash does not prove the work")
	ErrTamperedBlock = errors.New("block hash does not match its content")
	ErrBrokenLink    = errors.New("block previous hash does not match its parent")
	ErrUnencodable   = errors.New("block content can't be encoded")
)

// =============================================================================

// Block represents a group of votes batched together and sealed by a
// proof of work.
type Block struct {
	Index        uint64  // Position in the chain, genesis is 0.
	PreviousHash string  // Hash of the parent block.
	Votes        []Vote  // Votes in the order they were submitted.
	Timestamp    float64 // Unix seconds the block was proposed. Informational only.
	Proof        uint64  // Value identified to solve the hash puzzle.
	Hash         string  // Set once when the block is sealed.
}

// blockContent is the set of fields covered by the block hash.
type blockContent struct {
	Index        uint64  `json:"index"`
	PreviousHash string  `json:"previous_hash"`
	Votes        []Vote  `json:"votes"`
	Timestamp    float64 `json:"timestamp"`
	Proof        uint64  `json:"proof"`
}

// NewGenesis constructs the sealed genesis block for the specified time.
func NewGenesis(timestamp float64) Block {
	b := Block{
		Index:        0,
		PreviousHash: GenesisPrevHash,
		Votes:        []Vote{},
		Timestamp:    timestamp,
		Proof:        0,
	}
	b.Hash = b.ComputeHash()

	return b
}

// ComputeHash returns the digest of the block content. The stored hash is
// not part of the calculation. Content that can't be encoded, like a NaN
// timestamp, yields signature.ZeroHash; use Digest when that matters.
func (b Block) ComputeHash() string {
	hash, err := b.Digest()
	if err != nil {
		return signature.ZeroHash
	}

	return hash
}

// Digest returns the digest of the block content or ErrUnencodable when the
// content has no canonical form.
func (b Block) Digest() (string, error) {
	votes := b.Votes
	if votes == nil {
		votes = []Vote{}
	}

	data, err := signature.Canonical(blockContent{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Votes:        votes,
		Timestamp:    b.Timestamp,
		Proof:        b.Proof,
	})
	if err != nil {
		return "", fmt.Errorf("blk[%d]: %w: %w", b.Index, ErrUnencodable, err)
	}

	return signature.HashBytes(data), nil
}

// Seal returns a copy of the block with the hash assigned.
func (b Block) Seal(hash string) Block {
	b.Votes = copyVotes(b.Votes)
	b.Hash = hash
	return b
}

// Copy returns a copy of the block that shares no memory with the original.
func (b Block) Copy() Block {
	b.Votes = copyVotes(b.Votes)
	return b
}

// IsSealed reports if the block has been assigned its hash.
func (b Block) IsSealed() bool {
	return b.Hash != ""
}

// =============================================================================

// ValidateBlock takes a block and a claimed hash and validates it to be
// appended after the specified parent. This is the admission gate for locally
// mined blocks and blocks received from peers alike.
func (b Block) ValidateBlock(parent Block, claimedHash string, difficulty uint, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match the tip", b.Index)

	if b.PreviousHash != parent.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrStaleProposal, b.PreviousHash, parent.Hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Index)

	nextIndex := parent.Index + 1
	if b.Index != nextIndex {
		return fmt.Errorf("%w: got index %d, exp %d", ErrStaleProposal, b.Index, nextIndex)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Index)

	if !IsValidProof(b, claimedHash, difficulty) {
		return fmt.Errorf("%w: %s", ErrInvalidProof, claimedHash)
	}

	return nil
}

// ValidateLink checks a sealed block against its parent for tampering. This
// is used to audit a chain that was already admitted.
func (b Block) ValidateLink(parent Block) error {
	hash, err := b.Digest()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTamperedBlock, err)
	}

	if b.Hash != hash {
		return fmt.Errorf("blk[%d]: %w: stored %s, computed %s", b.Index, ErrTamperedBlock, b.Hash, hash)
	}

	if b.PreviousHash != parent.Hash {
		return fmt.Errorf("blk[%d]: %w: got %s, exp %s", b.Index, ErrBrokenLink, b.PreviousHash, parent.Hash)
	}

	return nil
}

// =============================================================================

// BlockData represents what is written to storage and sent across the network.
type BlockData struct {
	Index        uint64  `json:"index"`
	PreviousHash string  `json:"previous_hash"`
	Votes        []Vote  `json:"votes"`
	Timestamp    float64 `json:"timestamp"`
	Proof        uint64  `json:"proof"`
	Hash         string  `json:"hash,omitempty"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	votes := copyVotes(block.Votes)

	return BlockData{
		Index:        block.Index,
		PreviousHash: block.PreviousHash,
		Votes:        votes,
		Timestamp:    block.Timestamp,
		Proof:        block.Proof,
		Hash:         block.Hash,
	}
}

// ToBlock converts a BlockData into a Block. The hash is carried over
// untouched; it is up to the caller to validate it.
func ToBlock(blockData BlockData) Block {
	return Block{
		Index:        blockData.Index,
		PreviousHash: blockData.PreviousHash,
		Votes:        copyVotes(blockData.Votes),
		Timestamp:    blockData.Timestamp,
		Proof:        blockData.Proof,
		Hash:         blockData.Hash,
	}
}
