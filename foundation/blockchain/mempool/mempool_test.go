package mempool_test

import (
	"testing"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/ardanlabs/votechain/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCRUD(t *testing.T) {
	type table struct {
		name  string
		votes []database.Vote
	}

	tt := []table{
		{
			name: "basic",
			votes: []database.Vote{
				{VoterID: "V3", Candidate: "A"},
				{VoterID: "V1", Candidate: "B"},
				{VoterID: "V4", Candidate: "A"},
				{VoterID: "V2", Candidate: "C"},
			},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of votes.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					for _, vote := range tst.votes {
						if !mp.Add(vote) {
							t.Fatalf("\t%s\tTest %d:\tShould be able to add vote: %s", failed, testID, vote)
						}
						t.Logf("\t%s\tTest %d:\tShould be able to add vote: %s", success, testID, vote)
					}

					if mp.Add(database.Vote{VoterID: "V1", Candidate: "C"}) {
						t.Fatalf("\t%s\tTest %d:\tShould not be able to add a second vote for a voter.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould not be able to add a second vote for a voter.", success, testID)

					for i, vote := range mp.Copy() {
						if vote != tst.votes[i] {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, vote)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.votes[i])
							t.Fatalf("\t%s\tTest %d:\tShould get back the votes in submission order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the votes in submission order.", success, testID)

					best := mp.PickBest(2)
					if len(best) != 2 || best[0] != tst.votes[0] || best[1] != tst.votes[1] {
						t.Fatalf("\t%s\tTest %d:\tShould pick the oldest votes: %v", failed, testID, best)
					}
					t.Logf("\t%s\tTest %d:\tShould pick the oldest votes.", success, testID)

					mp.Delete("V1", "V9")
					votes := mp.Copy()
					if len(votes) != 3 || votes[0].VoterID != "V3" || votes[1].VoterID != "V4" || votes[2].VoterID != "V2" {
						t.Fatalf("\t%s\tTest %d:\tShould be able to remove a vote and keep the order: %v", failed, testID, votes)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to remove a vote and keep the order.", success, testID)

					mp.Truncate()
					if mp.Count() != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
