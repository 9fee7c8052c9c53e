// Package state is the core API for the blockchain and implements all the
// business rules and processing. A State value is the ledger of a node: it
// owns the chain, the pending votes and the voter registry.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/ardanlabs/votechain/foundation/blockchain/genesis"
	"github.com/ardanlabs/votechain/foundation/blockchain/mempool"
	"github.com/ardanlabs/votechain/foundation/blockchain/peer"
)

// Set of errors returned by the ledger operations. All of them leave the
// state of the ledger unchanged.
var (
	ErrUnauthorized   = errors.New("voter is not on the allow list")
	ErrDuplicateVote  = errors.New("voter has already voted")
	ErrNoPendingVotes = errors.New("no pending votes to mine")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// Gateway interface represents the behavior required to be implemented by any
// package providing support for delivering sealed blocks to peers. Blocks
// coming back from peers enter through ProcessProposedBlock.
type Gateway interface {
	Broadcast(ctx context.Context, blockData database.BlockData) error
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host       string
	Genesis    genesis.Genesis
	Storage    database.Serializer
	KnownPeers *peer.PeerSet
	Gateway    Gateway
	EvHandler  EventHandler
	Now        func() time.Time
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	host      string
	evHandler EventHandler
	now       func() time.Time

	allowed map[string]struct{}
	voted   map[string]struct{}

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	db         *database.Database
	gateway    Gateway

	Worker Worker
}

// New constructs a new blockchain for data management. Blocks already held
// by the storage are loaded and audited before the node is allowed to start.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	gen := cfg.Genesis
	if gen.Difficulty == 0 {
		gen.Difficulty = database.DefaultDifficulty
	}

	// Access the chain held by the storage, seeding it with the genesis
	// block when the storage is empty.
	db, err := database.New(gen.Block(), cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// A chain loaded from storage must pass the audit before we trust it.
	if err := db.ValidateChain(); err != nil {
		db.Close()
		return nil, fmt.Errorf("stored chain failed validation: %w", err)
	}

	state := State{
		host:      cfg.Host,
		evHandler: ev,
		now:       now,

		allowed: make(map[string]struct{}, len(gen.Voters)),
		voted:   make(map[string]struct{}),

		knownPeers: knownPeers,
		genesis:    gen,
		mempool:    mempool.New(),
		db:         db,
		gateway:    cfg.Gateway,
	}

	for _, voterID := range gen.Voters {
		state.allowed[voterID] = struct{}{}
	}

	// Voters already recorded in the chain can't vote again.
	for _, block := range db.Copy() {
		for _, vote := range block.Votes {
			state.voted[vote.VoterID] = struct{}{}
		}
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure the database is properly closed.
	return s.db.Close()
}
