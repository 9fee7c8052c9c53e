package state_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/ardanlabs/votechain/foundation/blockchain/gateway"
	"github.com/ardanlabs/votechain/foundation/blockchain/genesis"
	"github.com/ardanlabs/votechain/foundation/blockchain/peer"
	"github.com/ardanlabs/votechain/foundation/blockchain/signature"
	"github.com/ardanlabs/votechain/foundation/blockchain/state"
	"github.com/ardanlabs/votechain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/votechain/foundation/events"
	"go.uber.org/zap/zaptest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const traceID = "00000000-0000-0000-0000-000000000000"

func ifErrFailNow(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func testGenesis() genesis.Genesis {
	return genesis.Genesis{
		Date:       time.Unix(1700000000, 0).UTC(),
		Difficulty: 1,
		Voters:     []string{"V1", "V2", "V3"},
	}
}

func newState(t *testing.T, host string, strg database.Serializer, gw state.Gateway) *state.State {
	t.Helper()

	if strg == nil {
		var err error
		strg, err = memory.New()
		ifErrFailNow(t, err)
	}

	evts := events.New()
	t.Cleanup(evts.Shutdown)

	st, err := state.New(state.Config{
		Host:       host,
		Genesis:    testGenesis(),
		Storage:    strg,
		KnownPeers: peer.NewPeerSet(),
		Gateway:    gw,
		EvHandler:  evts.Handler(zaptest.NewLogger(t).Sugar(), traceID),
	})
	ifErrFailNow(t, err)

	return st
}

// =============================================================================

func Test_VotingScenario(t *testing.T) {
	t.Log("Given the need to record votes in a chain of mined blocks.")
	{
		st := newState(t, "localhost:9080", nil, nil)
		defer st.Shutdown()

		ifErrFailNow(t, st.SubmitVote("V1", "A"))
		ifErrFailNow(t, st.SubmitVote("V2", "B"))
		t.Logf("\t%s\tShould be able to submit votes for two voters.", success)

		if n := st.QueryMempoolLength(); n != 2 {
			t.Fatalf("\t%s\tShould have two pending votes: got %d", failed, n)
		}
		t.Logf("\t%s\tShould have two pending votes.", success)

		block, err := st.MineNewBlock(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		if block.Index != 1 {
			t.Fatalf("\t%s\tShould mine block 1: got %d", failed, block.Index)
		}
		t.Logf("\t%s\tShould mine block 1.", success)

		exp := []database.Vote{{VoterID: "V1", Candidate: "A"}, {VoterID: "V2", Candidate: "B"}}
		if len(block.Votes) != len(exp) || block.Votes[0] != exp[0] || block.Votes[1] != exp[1] {
			t.Fatalf("\t%s\tShould record the votes in submission order: got %v", failed, block.Votes)
		}
		t.Logf("\t%s\tShould record the votes in submission order.", success)

		if !strings.HasPrefix(block.Hash, "0") {
			t.Fatalf("\t%s\tShould mine a hash that meets the difficulty: %s", failed, block.Hash)
		}
		t.Logf("\t%s\tShould mine a hash that meets the difficulty.", success)

		if n := len(st.RetrieveChain()); n != 2 {
			t.Fatalf("\t%s\tShould have a chain of two blocks: got %d", failed, n)
		}
		t.Logf("\t%s\tShould have a chain of two blocks.", success)

		if err := st.ValidateChain(); err != nil {
			t.Fatalf("\t%s\tShould have a valid chain: %s", failed, err)
		}
		t.Logf("\t%s\tShould have a valid chain.", success)

		if n := st.QueryMempoolLength(); n != 0 {
			t.Fatalf("\t%s\tShould have no pending votes: got %d", failed, n)
		}
		t.Logf("\t%s\tShould have no pending votes.", success)

		if err := st.SubmitVote("V1", "B"); !errors.Is(err, state.ErrDuplicateVote) {
			t.Fatalf("\t%s\tShould not be able to vote twice: %v", failed, err)
		}
		t.Logf("\t%s\tShould not be able to vote twice.", success)

		if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrNoPendingVotes) {
			t.Fatalf("\t%s\tShould not be able to mine without votes: %v", failed, err)
		}
		t.Logf("\t%s\tShould not be able to mine without votes.", success)

		tally := st.QueryTally()
		if tally["A"] != 1 || tally["B"] != 1 || len(tally) != 2 {
			t.Fatalf("\t%s\tShould get back the tally: got %v", failed, tally)
		}
		t.Logf("\t%s\tShould get back the tally.", success)
	}
}

func Test_SubmitVote(t *testing.T) {
	type table struct {
		name      string
		voterID   string
		candidate string
		err       error
	}

	tt := []table{
		{name: "valid", voterID: "V1", candidate: "A"},
		{name: "unauthorized", voterID: "V9", candidate: "A", err: state.ErrUnauthorized},
		{name: "duplicate", voterID: "V1", candidate: "B", err: state.ErrDuplicateVote},
		{name: "candidate", voterID: "V2", candidate: "", err: database.ErrInvalidVote},
		{name: "retry", voterID: "V2", candidate: "B"},
	}

	t.Log("Given the need to accept only one vote per allowed voter.")
	{
		st := newState(t, "localhost:9080", nil, nil)
		defer st.Shutdown()

		for _, tst := range tt {
			f := func(t *testing.T) {
				err := st.SubmitVote(tst.voterID, tst.candidate)
				if !errors.Is(err, tst.err) {
					t.Logf("Test %s:\tgot: %v", tst.name, err)
					t.Logf("Test %s:\texp: %v", tst.name, tst.err)
					t.Fatalf("Test %s:\tShould get back the expected result.", tst.name)
				}
			}

			t.Run(tst.name, f)
		}

		votes := st.RetrievePendingVotes()
		if len(votes) != 2 || votes[0].VoterID != "V1" || votes[1].VoterID != "V2" {
			t.Fatalf("\t%s\tShould keep pending votes in submission order: got %v", failed, votes)
		}
		t.Logf("\t%s\tShould keep pending votes in submission order.", success)

		if st.QueryVoted("V3") {
			t.Fatalf("\t%s\tShould not mark a voter that has not voted.", failed)
		}
		t.Logf("\t%s\tShould not mark a voter that has not voted.", success)
	}
}

func Test_AdmitBlock(t *testing.T) {
	t.Log("Given the need to only admit blocks that extend the tip with valid work.")
	{
		st := newState(t, "localhost:9080", nil, nil)
		defer st.Shutdown()

		ifErrFailNow(t, st.SubmitVote("V1", "A"))
		ifErrFailNow(t, st.SubmitVote("V2", "B"))

		gen := st.RetrieveLatestBlock()
		stale, staleHash, err := database.POW(context.Background(), database.POWArgs{
			Difficulty: 1,
			PrevBlock:  gen,
			Votes:      []database.Vote{{VoterID: "V1", Candidate: "A"}},
			Timestamp:  1700000001,
		})
		ifErrFailNow(t, err)

		if _, err := st.MineNewBlock(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		if err := st.AdmitBlock(stale, staleHash); !errors.Is(err, database.ErrStaleProposal) {
			t.Fatalf("\t%s\tShould reject a block on an old tip: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a block on an old tip.", success)

		ifErrFailNow(t, st.SubmitVote("V3", "A"))
		tip := st.RetrieveLatestBlock()

		block, hash, err := database.POW(context.Background(), database.POWArgs{
			Difficulty: 1,
			PrevBlock:  tip,
			Votes:      st.RetrievePendingVotes(),
			Timestamp:  1700000002,
		})
		ifErrFailNow(t, err)

		forged := strings.Repeat("0", 64)
		if err := st.AdmitBlock(block, forged); !errors.Is(err, database.ErrInvalidProof) {
			t.Fatalf("\t%s\tShould reject a forged hash: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a forged hash.", success)

		// Find a proof whose real hash misses the difficulty.
		weak := block
		for weak.Proof = 0; strings.HasPrefix(weak.ComputeHash(), "0"); weak.Proof++ {
		}
		if err := st.AdmitBlock(weak, weak.ComputeHash()); !errors.Is(err, database.ErrInvalidProof) {
			t.Fatalf("\t%s\tShould reject a hash that misses the difficulty: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a hash that misses the difficulty.", success)

		unencodable := database.Block{
			Index:        tip.Index + 1,
			PreviousHash: tip.Hash,
			Votes:        []database.Vote{{VoterID: "V9", Candidate: "Z"}},
			Timestamp:    math.NaN(),
		}
		if err := st.AdmitBlock(unencodable, signature.ZeroHash); !errors.Is(err, database.ErrInvalidProof) {
			t.Fatalf("\t%s\tShould reject a block whose content can't be hashed: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a block whose content can't be hashed.", success)

		if n := len(st.RetrieveChain()); n != 2 {
			t.Fatalf("\t%s\tShould leave the chain unchanged after rejections: got %d", failed, n)
		}
		t.Logf("\t%s\tShould leave the chain unchanged after rejections.", success)

		if err := st.AdmitBlock(block, hash); err != nil {
			t.Fatalf("\t%s\tShould admit a valid block: %s", failed, err)
		}
		t.Logf("\t%s\tShould admit a valid block.", success)

		if n := st.QueryMempoolLength(); n != 0 {
			t.Fatalf("\t%s\tShould remove the admitted votes from the pool: got %d", failed, n)
		}
		t.Logf("\t%s\tShould remove the admitted votes from the pool.", success)
	}
}

func Test_ConcurrentAdmission(t *testing.T) {
	t.Log("Given the need to admit one block per tip under concurrent proposals.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen many blocks race for the same tip.", testID)
		{
			st := newState(t, "nodeA", nil, nil)
			defer st.Shutdown()
			tip := st.RetrieveLatestBlock()

			const proposals = 16

			type proposal struct {
				block database.Block
				hash  string
			}
			props := make([]proposal, proposals)
			for i := range props {
				block, hash, err := database.POW(context.Background(), database.POWArgs{
					Difficulty: 1,
					PrevBlock:  tip,
					Votes:      []database.Vote{{VoterID: "V1", Candidate: "A"}},
					Timestamp:  tip.Timestamp + float64(i+1),
				})
				ifErrFailNow(t, err)
				props[i] = proposal{block: block, hash: hash}
			}

			errs := make([]error, proposals)
			start := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(proposals)
			for i := range props {
				go func(i int) {
					defer wg.Done()
					<-start
					errs[i] = st.AdmitBlock(props[i].block, props[i].hash)
				}(i)
			}
			close(start)
			wg.Wait()

			var admitted int
			for _, err := range errs {
				switch {
				case err == nil:
					admitted++
				case !errors.Is(err, database.ErrStaleProposal):
					t.Fatalf("\t%s\tTest %d:\tShould reject the losers as stale: %v", failed, testID, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould reject the losers as stale.", success, testID)

			if admitted != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould admit exactly one block: got %d", failed, testID, admitted)
			}
			if n := len(st.RetrieveChain()); n != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould grow the chain by one block: got %d", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould admit exactly one block.", success, testID)

			if err := st.ValidateChain(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould leave a valid chain: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould leave a valid chain.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen mining races a block from a peer.", testID)
		{
			for round := 0; round < 8; round++ {
				st := newState(t, "nodeA", nil, nil)
				defer st.Shutdown()
				ifErrFailNow(t, st.SubmitVote("V1", "A"))
				tip := st.RetrieveLatestBlock()

				peerBlock, peerHash, err := database.POW(context.Background(), database.POWArgs{
					Difficulty: 1,
					PrevBlock:  tip,
					Votes:      []database.Vote{{VoterID: "V2", Candidate: "B"}},
					Timestamp:  tip.Timestamp + 1,
				})
				ifErrFailNow(t, err)

				var mined database.Block
				var mineErr, peerErr error

				start := make(chan struct{})
				var wg sync.WaitGroup
				wg.Add(2)
				go func() {
					defer wg.Done()
					<-start
					mined, mineErr = st.MineNewBlock(context.Background())
				}()
				go func() {
					defer wg.Done()
					<-start
					peerErr = st.ProcessProposedBlock(database.NewBlockData(peerBlock.Seal(peerHash)))
				}()
				close(start)
				wg.Wait()

				switch {
				case mineErr == nil && peerErr == nil:

					// Mining took its snapshot after the peer block landed.
					if mined.PreviousHash != peerHash || mined.Index != 2 {
						t.Fatalf("\t%s\tTest %d:\tround %d: Should not admit two blocks on one tip.", failed, testID, round)
					}

				case errors.Is(mineErr, database.ErrStaleProposal):
					if peerErr != nil {
						t.Fatalf("\t%s\tTest %d:\tround %d: Should admit the peer block: %s", failed, testID, round, peerErr)
					}
					votes := st.RetrievePendingVotes()
					if len(votes) != 1 || votes[0].VoterID != "V1" {
						t.Fatalf("\t%s\tTest %d:\tround %d: Should keep the losing votes pending: %v", failed, testID, round, votes)
					}

				case mineErr == nil && errors.Is(peerErr, database.ErrStaleProposal):
					if mined.PreviousHash != tip.Hash {
						t.Fatalf("\t%s\tTest %d:\tround %d: Should mine on the original tip.", failed, testID, round)
					}

				default:
					t.Fatalf("\t%s\tTest %d:\tround %d: Should get back a stale loser: mine[%v] peer[%v]", failed, testID, round, mineErr, peerErr)
				}

				if err := st.ValidateChain(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tround %d: Should leave a valid chain: %s", failed, testID, round, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould let only one block extend each tip.", success, testID)
		}
	}
}

func Test_Replication(t *testing.T) {
	t.Log("Given the need to replicate mined blocks between two nodes.")
	{
		hub := gateway.NewHub()

		nodeA := newState(t, "nodeA", nil, hub.Gateway("nodeA"))
		defer nodeA.Shutdown()
		nodeB := newState(t, "nodeB", nil, hub.Gateway("nodeB"))
		defer nodeB.Shutdown()

		hub.Register("nodeA", nodeA.ProcessProposedBlock)
		hub.Register("nodeB", nodeB.ProcessProposedBlock)

		if nodeA.RetrieveLatestBlock().Hash != nodeB.RetrieveLatestBlock().Hash {
			t.Fatalf("\t%s\tShould start both nodes from the same genesis.", failed)
		}
		t.Logf("\t%s\tShould start both nodes from the same genesis.", success)

		// V1 reaches node B as well but node A mines it first.
		ifErrFailNow(t, nodeA.SubmitVote("V1", "A"))
		ifErrFailNow(t, nodeB.SubmitVote("V1", "A"))
		ifErrFailNow(t, nodeB.SubmitVote("V2", "B"))

		block, err := nodeA.MineNewBlock(context.Background())
		ifErrFailNow(t, err)

		nodeA.NetSendBlockToPeers(context.Background(), block)

		if nodeB.RetrieveLatestBlock().Hash != block.Hash {
			t.Fatalf("\t%s\tShould have the same tip on both nodes.", failed)
		}
		t.Logf("\t%s\tShould have the same tip on both nodes.", success)

		votes := nodeB.RetrievePendingVotes()
		if len(votes) != 1 || votes[0].VoterID != "V2" {
			t.Fatalf("\t%s\tShould drop the replicated votes from the peer pool: got %v", failed, votes)
		}
		t.Logf("\t%s\tShould drop the replicated votes from the peer pool.", success)

		if !nodeB.QueryVoted("V1") {
			t.Fatalf("\t%s\tShould mark the replicated voters on the peer.", failed)
		}
		if err := nodeB.SubmitVote("V1", "B"); !errors.Is(err, state.ErrDuplicateVote) {
			t.Fatalf("\t%s\tShould reject a replicated voter on the peer: %v", failed, err)
		}
		t.Logf("\t%s\tShould mark the replicated voters on the peer.", success)

		if err := nodeB.ProcessProposedBlock(database.NewBlockData(block)); !errors.Is(err, database.ErrStaleProposal) {
			t.Fatalf("\t%s\tShould reject a block delivered twice: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a block delivered twice.", success)

		// Node B mines its remaining vote and node A follows.
		block, err = nodeB.MineNewBlock(context.Background())
		ifErrFailNow(t, err)

		nodeB.NetSendBlockToPeers(context.Background(), block)

		if nodeA.RetrieveLatestBlock().Hash != block.Hash {
			t.Fatalf("\t%s\tShould follow the peer tip.", failed)
		}
		if err := nodeA.ValidateChain(); err != nil {
			t.Fatalf("\t%s\tShould have a valid chain on the peer: %s", failed, err)
		}
		t.Logf("\t%s\tShould follow the peer tip.", success)

		tally := nodeA.QueryTally()
		if tally["A"] != 1 || tally["B"] != 1 {
			t.Fatalf("\t%s\tShould tally the replicated votes: got %v", failed, tally)
		}
		t.Logf("\t%s\tShould tally the replicated votes.", success)
	}
}

func Test_StartupAudit(t *testing.T) {
	t.Log("Given the need to refuse a tampered chain at startup.")
	{
		strg, err := memory.New()
		ifErrFailNow(t, err)

		st := newState(t, "localhost:9080", strg, nil)
		ifErrFailNow(t, st.SubmitVote("V1", "A"))
		_, err = st.MineNewBlock(context.Background())
		ifErrFailNow(t, err)
		ifErrFailNow(t, st.Shutdown())

		st = newState(t, "localhost:9080", strg, nil)
		if n := len(st.RetrieveChain()); n != 2 {
			t.Fatalf("\t%s\tShould reload the stored chain: got %d", failed, n)
		}
		if !st.QueryVoted("V1") {
			t.Fatalf("\t%s\tShould restore the voters from the stored chain.", failed)
		}
		t.Logf("\t%s\tShould reload the stored chain.", success)
		ifErrFailNow(t, st.Shutdown())

		var blocks []database.BlockData
		iter := strg.ForEach()
		for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
			ifErrFailNow(t, err)
			blocks = append(blocks, blockData)
		}

		blocks[1].Votes[0].Candidate = "B"

		ifErrFailNow(t, strg.Reset())
		for _, blockData := range blocks {
			ifErrFailNow(t, strg.Write(blockData))
		}

		evts := events.New()
		defer evts.Shutdown()

		_, err = state.New(state.Config{
			Host:      "localhost:9080",
			Genesis:   testGenesis(),
			Storage:   strg,
			EvHandler: evts.Handler(zaptest.NewLogger(t).Sugar(), traceID),
		})
		if !errors.Is(err, database.ErrTamperedBlock) {
			t.Fatalf("\t%s\tShould refuse to start on a tampered chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to start on a tampered chain.", success)
	}
}

func Test_GenesisAdoption(t *testing.T) {
	t.Log("Given the need to adopt the genesis of a network before the chain starts.")
	{
		st := newState(t, "localhost:9080", nil, nil)
		defer st.Shutdown()

		other := database.NewGenesis(1600000000)
		if err := st.ProcessProposedBlock(database.NewBlockData(other)); err != nil {
			t.Fatalf("\t%s\tShould adopt a genesis on a fresh chain: %s", failed, err)
		}
		if st.RetrieveLatestBlock().Hash != other.Hash {
			t.Fatalf("\t%s\tShould have the adopted genesis as the tip.", failed)
		}
		t.Logf("\t%s\tShould adopt a genesis on a fresh chain.", success)

		if err := st.ProcessProposedBlock(database.NewBlockData(other)); err != nil {
			t.Fatalf("\t%s\tShould accept the same genesis again: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept the same genesis again.", success)

		ifErrFailNow(t, st.SubmitVote("V1", "A"))
		block, err := st.MineNewBlock(context.Background())
		ifErrFailNow(t, err)

		if block.PreviousHash != other.Hash {
			t.Fatalf("\t%s\tShould mine on top of the adopted genesis.", failed)
		}
		t.Logf("\t%s\tShould mine on top of the adopted genesis.", success)

		if err := st.ProcessProposedBlock(database.NewBlockData(database.NewGenesis(1500000000))); !errors.Is(err, database.ErrChainStarted) {
			t.Fatalf("\t%s\tShould not replace the genesis of a started chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould not replace the genesis of a started chain.", success)
	}
}

func Test_MineCancel(t *testing.T) {
	t.Log("Given the need to cancel a running proof of work.")
	{
		strg, err := memory.New()
		ifErrFailNow(t, err)

		gen := testGenesis()
		gen.Difficulty = 64

		st, err := state.New(state.Config{
			Host:    "localhost:9080",
			Genesis: gen,
			Storage: strg,
		})
		ifErrFailNow(t, err)
		defer st.Shutdown()

		ifErrFailNow(t, st.SubmitVote("V1", "A"))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, err := st.MineNewBlock(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("\t%s\tShould stop mining when cancelled: %v", failed, err)
		}
		t.Logf("\t%s\tShould stop mining when cancelled.", success)

		if n := st.QueryMempoolLength(); n != 1 {
			t.Fatalf("\t%s\tShould keep the votes pending: got %d", failed, n)
		}
		t.Logf("\t%s\tShould keep the votes pending.", success)
	}
}
