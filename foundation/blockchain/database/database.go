// Package database handles all the lower level support for maintaining the
// chain of sealed blocks in memory and in the configured storage.
package database

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChainStarted is returned when a genesis block is offered to a chain
// that already holds mined blocks.
var ErrChainStarted = errors.New("chain already extends past genesis")

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks starting at genesis.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// Database manages the ordered chain of sealed blocks. The chain is append
// only; blocks are never reordered or truncated once written.
type Database struct {
	mu         sync.RWMutex
	blocks     []Block
	serializer Serializer
}

// New constructs a new database and reads the blocks held by the serializer.
// When the serializer is empty, the specified genesis block is written as the
// first block of the chain. Blocks read from storage are not validated here,
// call ValidateChain to audit them.
func New(genesis Block, serializer Serializer, evHandler func(v string, args ...any)) (*Database, error) {
	db := Database{
		serializer: serializer,
	}

	iter := serializer.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		if blockData.Index != uint64(len(db.blocks)) {
			return nil, fmt.Errorf("block is out of order, got %d, exp %d", blockData.Index, len(db.blocks))
		}

		db.blocks = append(db.blocks, ToBlock(blockData))
	}

	if len(db.blocks) > 0 {
		evHandler("database: New: loaded blocks[%d]", len(db.blocks))

		if db.blocks[0].Hash != genesis.Hash {
			evHandler("database: New: WARNING: stored genesis[%s] differs from configured genesis[%s]", db.blocks[0].Hash, genesis.Hash)
		}

		return &db, nil
	}

	evHandler("database: New: empty storage: writing genesis[%s]", genesis.Hash)

	if err := serializer.Write(NewBlockData(genesis)); err != nil {
		return nil, fmt.Errorf("writing genesis: %w", err)
	}
	db.blocks = append(db.blocks, genesis.Copy())

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.serializer.Close()
}

// Write appends the sealed block to storage and to the in memory chain. The
// caller is responsible for validating the block first.
func (db *Database) Write(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !block.IsSealed() {
		return errors.New("block is not sealed")
	}

	if exp := uint64(len(db.blocks)); block.Index != exp {
		return fmt.Errorf("block is out of order, got %d, exp %d", block.Index, exp)
	}

	if err := db.serializer.Write(NewBlockData(block)); err != nil {
		return err
	}
	db.blocks = append(db.blocks, block.Copy())

	return nil
}

// ReplaceGenesis swaps the genesis block of a chain that holds nothing else.
// This lets a fresh node adopt the genesis of the network it joins.
func (db *Database) ReplaceGenesis(genesis Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.blocks) > 1 {
		return ErrChainStarted
	}

	if err := db.serializer.Reset(); err != nil {
		return err
	}

	if err := db.serializer.Write(NewBlockData(genesis)); err != nil {
		// Put the current genesis back so storage matches the chain in memory.
		if rerr := db.serializer.Write(NewBlockData(db.blocks[0])); rerr != nil {
			return errors.Join(err, fmt.Errorf("restoring genesis: %w", rerr))
		}
		return err
	}
	db.blocks = []Block{genesis.Copy()}

	return nil
}

// LatestBlock returns a copy of the block at the tip of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1].Copy()
}

// Length returns the number of blocks in the chain, genesis included.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// GetBlock returns a copy of the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("block %d does not exist", num)
	}

	return db.blocks[num].Copy(), nil
}

// Copy returns a copy of the full chain.
func (db *Database) Copy() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	for i, block := range db.blocks {
		blocks[i] = block.Copy()
	}

	return blocks
}

// ValidateChain walks the chain from the first mined block to the tip and
// checks every block for tampering and a broken link to its parent. The
// chain is never modified.
func (db *Database) ValidateChain() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for i := 1; i < len(db.blocks); i++ {
		if err := db.blocks[i].ValidateLink(db.blocks[i-1]); err != nil {
			return err
		}
	}

	return nil
}
