package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
)

// Receiver is the callback a node registers to be handed blocks from its
// peers. It is normally the ProcessProposedBlock method of a ledger.
type Receiver func(blockData database.BlockData) error

// Hub connects the ledgers of a single process.
type Hub struct {
	mu        sync.RWMutex
	receivers map[string]Receiver
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{
		receivers: make(map[string]Receiver),
	}
}

// Register sets the receiver for the specified host.
func (h *Hub) Register(host string, fn Receiver) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.receivers[host] = fn
}

// Unregister removes the receiver for the specified host.
func (h *Hub) Unregister(host string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.receivers, host)
}

// Gateway returns the gateway the specified host broadcasts through.
func (h *Hub) Gateway(host string) *Local {
	return &Local{hub: h, host: host}
}

// =============================================================================

// Local delivers blocks to every other host registered with its hub. This
// implements the state.Gateway interface.
type Local struct {
	hub  *Hub
	host string
}

// Broadcast hands a copy of the block to every other registered receiver
// in host order. A rejection by one receiver does not stop delivery to the
// others.
func (l *Local) Broadcast(ctx context.Context, blockData database.BlockData) error {
	l.hub.mu.RLock()
	hosts := make([]string, 0, len(l.hub.receivers))
	for host := range l.hub.receivers {
		if host != l.host {
			hosts = append(hosts, host)
		}
	}
	receivers := make(map[string]Receiver, len(hosts))
	for _, host := range hosts {
		receivers[host] = l.hub.receivers[host]
	}
	l.hub.mu.RUnlock()

	sort.Strings(hosts)

	var errs []error
	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			return err
		}

		bd := blockData
		bd.Votes = append([]database.Vote{}, blockData.Votes...)

		if err := receivers[host](bd); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", host, err))
		}
	}

	return errors.Join(errs...)
}
