package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/ardanlabs/votechain/foundation/blockchain/genesis"
)

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain. The proof of work runs without holding the
// ledger lock, so votes and peer blocks keep flowing while it runs. If a peer
// block takes the tip first, the mined block is rejected as stale and its
// votes stay pending.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Take a snapshot of the pending votes and the tip they will extend.
	s.mu.Lock()
	votes := s.mempool.Copy()
	tip := s.db.LatestBlock()
	s.mu.Unlock()

	if len(votes) == 0 {
		return database.Block{}, ErrNoPendingVotes
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: votes[%d]", len(votes))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, hash, err := database.POW(ctx, database.POWArgs{
		Difficulty: s.genesis.Difficulty,
		PrevBlock:  tip,
		Votes:      votes,
		Timestamp:  genesis.Timestamp(s.now()),
		EvHandler:  s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: admit block")

	return s.admitBlock(block, hash)
}

// AdmitBlock takes a block and the hash claimed for it and appends the block
// to the chain if it extends the current tip and the hash proves the work.
// This is the only way a block enters the chain.
func (s *State) AdmitBlock(block database.Block, claimedHash string) error {
	_, err := s.admitBlock(block, claimedHash)
	return err
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain. The hash carried
// by the record is the claimed hash. A genesis record is adopted without
// validation when the local chain holds nothing but its own genesis.
func (s *State) ProcessProposedBlock(blockData database.BlockData) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numVotes[%d]", blockData.PreviousHash, blockData.Hash, len(blockData.Votes))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", blockData.Hash)

	block := database.ToBlock(blockData)

	if block.Index == 0 {
		return s.adoptGenesis(block)
	}

	if _, err := s.admitBlock(block, blockData.Hash); err != nil {
		return err
	}

	// If a mining operation is running it is now working on a stale tip
	// and needs to stop.
	if s.Worker != nil {
		s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
		s.Worker.SignalCancelMining()
	}

	return nil
}

// ValidateChain audits the full chain for tampered blocks and broken links.
// It never changes the chain.
func (s *State) ValidateChain() error {
	if err := s.db.ValidateChain(); err != nil {
		s.evHandler("state: ValidateChain: FAILED: %s", err)
		return err
	}

	return nil
}

// =============================================================================

// admitBlock validates the block against the current tip and if it passes,
// seals the block and updates the state of the node including storage.
func (s *State) admitBlock(block database.Block, claimedHash string) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: admitBlock: validate block[%d]", block.Index)

	if err := block.ValidateBlock(s.db.LatestBlock(), claimedHash, s.genesis.Difficulty, s.evHandler); err != nil {
		s.evHandler("state: admitBlock: REJECTED: %s", err)
		return database.Block{}, err
	}

	sealed := block.Seal(claimedHash)

	s.evHandler("state: admitBlock: write to storage")

	if err := s.db.Write(sealed); err != nil {
		return database.Block{}, fmt.Errorf("writing block: %w", err)
	}

	s.evHandler("state: admitBlock: mark voters and remove votes from mempool")

	// The votes in this block are done. For a block from a peer these voters
	// may not have been seen by this node yet.
	voterIDs := make([]string, len(sealed.Votes))
	for i, vote := range sealed.Votes {
		voterIDs[i] = vote.VoterID
		s.voted[vote.VoterID] = struct{}{}
	}
	s.mempool.Delete(voterIDs...)

	// Send an event about this new block.
	s.blockEvent(sealed)

	return sealed.Copy(), nil
}

// adoptGenesis replaces the genesis block of a chain that has not been
// extended yet.
func (s *State) adoptGenesis(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := block.Digest()
	if err != nil {
		s.evHandler("state: adoptGenesis: REJECTED: %s", err)
		return err
	}

	if block.Hash == "" {
		block.Hash = hash
	}

	if current, err := s.db.GetBlock(0); err == nil && current.Hash == block.Hash {
		return nil
	}

	if err := s.db.ReplaceGenesis(block); err != nil {
		s.evHandler("state: adoptGenesis: REJECTED: %s", err)
		return err
	}

	s.evHandler("state: adoptGenesis: adopted genesis[%s]", block.Hash)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: %s`, string(blockJSON))
}
