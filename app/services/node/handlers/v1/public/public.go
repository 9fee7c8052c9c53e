// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/votechain/business/web/errs"
	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/ardanlabs/votechain/foundation/blockchain/state"
	"github.com/ardanlabs/votechain/foundation/events"
	"github.com/ardanlabs/votechain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of voting endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitVote adds a new vote to the mempool.
func (h Handlers) SubmitVote(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var sv submitVote
	if err := web.Decode(r, &sv); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit vote", "traceid", v.TraceID, "voter", sv.VoterID)

	if err := h.State.SubmitVote(sv.VoterID, sv.Candidate); err != nil {
		switch {
		case errors.Is(err, state.ErrUnauthorized):
			return errs.NewTrusted(err, http.StatusForbidden)
		case errors.Is(err, state.ErrDuplicateVote):
			return errs.NewTrusted(err, http.StatusConflict)
		default:
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	return web.Respond(ctx, w, status{Status: "vote added to mempool"}, http.StatusOK)
}

// Mine mines the pending votes into a new block and proposes the block to
// the known peers.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.MineNewBlock(ctx)
	if err != nil {
		switch {
		case errors.Is(err, state.ErrNoPendingVotes):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, database.ErrStaleProposal):
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return fmt.Errorf("mining block: %w", err)
	}

	h.State.NetSendBlockToPeers(ctx, block)

	resp := mined{
		Index: block.Index,
		Hash:  block.Hash,
		Votes: len(block.Votes),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining signals the worker to start a mining operation.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker == nil {
		return errs.NewTrusted(errors.New("background mining is not running"), http.StatusBadRequest)
	}

	h.State.Worker.SignalStartMining()

	return web.Respond(ctx, w, status{Status: "mining signalled"}, http.StatusOK)
}

// Blocks returns the blocks of the chain, optionally limited to a range of
// block numbers.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	toStr := web.Param(r, "to")

	if fromStr == "" && toStr == "" {
		return web.Respond(ctx, w, toBlockData(h.State.RetrieveChain()), http.StatusOK)
	}

	from, err := parseNumber(fromStr)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	to, err := parseNumber(toStr)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, toBlockData(blocks), http.StatusOK)
}

// Pending returns the set of votes waiting to be mined.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	votes := h.State.RetrievePendingVotes()

	resp := pending{
		Count: len(votes),
		Votes: votes,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Tally returns the number of votes per candidate recorded in the chain.
func (h Handlers) Tally(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := tally{
		LatestBlock: h.State.RetrieveLatestBlock().Index,
		Candidates:  h.State.QueryTally(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Validate audits the chain held by the node.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := validation{
		Valid:  true,
		Length: len(h.State.RetrieveChain()),
	}

	if err := h.State.ValidateChain(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()

	var hash string
	if blocks := h.State.QueryBlocksByNumber(0, 0); len(blocks) == 1 {
		hash = blocks[0].Hash
	}

	resp := genesis{
		Hash:       hash,
		Date:       gen.Date.UTC().Format(time.RFC3339),
		Difficulty: gen.Difficulty,
		Voters:     gen.Voters,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func parseNumber(s string) (uint64, error) {
	if s == "latest" || s == "" {
		return state.QueryLatest, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q", s)
	}

	return n, nil
}
