package state

import (
	"context"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
)

// NetSendBlockToPeers takes the new mined block and hands it to the gateway
// for delivery to the known peers. Delivery failures are reported and
// otherwise ignored; the local chain is never rolled back.
func (s *State) NetSendBlockToPeers(ctx context.Context, block database.Block) {
	s.evHandler("state: NetSendBlockToPeers: started: blk[%d]", block.Index)
	defer s.evHandler("state: NetSendBlockToPeers: completed: blk[%d]", block.Index)

	if s.gateway == nil {
		s.evHandler("state: NetSendBlockToPeers: no gateway configured")
		return
	}

	if err := s.gateway.Broadcast(ctx, database.NewBlockData(block)); err != nil {
		s.evHandler("state: NetSendBlockToPeers: WARNING: %s", err)
	}
}
