// Package mempool maintains the pool of pending votes for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
)

// Mempool represents a cache of votes waiting to be mined, keyed by voter
// id and kept in the order they were submitted.
type Mempool struct {
	mu    sync.RWMutex
	order []string
	pool  map[string]database.Vote
}

// New constructs a new empty mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]database.Vote),
	}
}

// Count returns the current number of votes in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends a vote to the end of the pool. It reports false if the voter
// already has a vote in the pool.
func (mp *Mempool) Add(vote database.Vote) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[vote.VoterID]; exists {
		return false
	}

	mp.pool[vote.VoterID] = vote
	mp.order = append(mp.order, vote.VoterID)

	return true
}

// Delete removes the votes cast by the specified voters from the pool.
func (mp *Mempool) Delete(voterIDs ...string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, voterID := range voterIDs {
		delete(mp.pool, voterID)
	}

	order := mp.order[:0]
	for _, voterID := range mp.order {
		if _, exists := mp.pool[voterID]; exists {
			order = append(order, voterID)
		}
	}
	mp.order = order
}

// Truncate clears all the votes from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Vote)
	mp.order = nil
}

// PickBest returns the next set of votes for the next block in the order
// they were submitted. A value of -1 returns every vote.
func (mp *Mempool) PickBest(howMany int) []database.Vote {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if howMany < 0 || howMany > len(mp.order) {
		howMany = len(mp.order)
	}

	votes := make([]database.Vote, howMany)
	for i, voterID := range mp.order[:howMany] {
		votes[i] = mp.pool[voterID]
	}

	return votes
}

// Copy returns every vote in the pool in submission order.
func (mp *Mempool) Copy() []database.Vote {
	return mp.PickBest(-1)
}
