package memory_test

import (
	"testing"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/ardanlabs/votechain/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func blocks() []database.BlockData {
	return []database.BlockData{
		{Index: 0, PreviousHash: "0", Votes: []database.Vote{}, Timestamp: 1700000000, Hash: "h0"},
		{Index: 1, PreviousHash: "h0", Votes: []database.Vote{{VoterID: "V1", Candidate: "A"}}, Timestamp: 1700000001.5, Proof: 7, Hash: "h1"},
		{Index: 2, PreviousHash: "h1", Votes: []database.Vote{{VoterID: "V2", Candidate: "B"}, {VoterID: "V3", Candidate: "A"}}, Timestamp: 1700000002, Proof: 9, Hash: "h2"},
	}
}

func Test_ReadWrite(t *testing.T) {
	t.Log("Given the need to store and read back blocks.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a small chain.", testID)
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct storage: %s", failed, testID, err)
			}
			defer strg.Close()

			for _, blockData := range blocks() {
				if err := strg.Write(blockData); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write block %d: %s", failed, testID, blockData.Index, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to write the blocks.", success, testID)

			got, err := strg.GetBlock(2)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to get block 2: %s", failed, testID, err)
			}
			if got.Hash != "h2" || len(got.Votes) != 2 || got.Votes[1].VoterID != "V3" {
				t.Logf("\t%s\tTest %d:\tgot: %+v", failed, testID, got)
				t.Fatalf("\t%s\tTest %d:\tShould get back the right block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the right block.", success, testID)

			var read []database.BlockData
			iter := strg.ForEach()
			for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to iterate: %s", failed, testID, err)
				}
				read = append(read, blockData)
			}

			if len(read) != len(blocks()) {
				t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, len(read))
				t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, len(blocks()))
				t.Fatalf("\t%s\tTest %d:\tShould iterate over every block.", failed, testID)
			}
			for i, blockData := range read {
				if blockData.Index != uint64(i) {
					t.Fatalf("\t%s\tTest %d:\tShould iterate in chain order, got %d at %d.", failed, testID, blockData.Index, i)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould iterate over every block in chain order.", success, testID)

			if err := strg.Reset(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reset: %s", failed, testID, err)
			}
			if _, err := strg.GetBlock(0); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not find blocks after a reset.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to reset the storage.", success, testID)
		}
	}
}
