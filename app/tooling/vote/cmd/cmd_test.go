package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ardanlabs/votechain/business/web/errs"
	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/spf13/viper"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Send(t *testing.T) {
	t.Log("Given the need to call the public api of a node.")
	{
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")

			switch r.URL.Path {
			case "/v1/vote/submit":
				var vote database.Vote
				json.NewDecoder(r.Body).Decode(&vote)

				if vote.Candidate == "" {
					w.WriteHeader(http.StatusBadRequest)
					json.NewEncoder(w).Encode(errs.Response{
						Error:  "data validation error",
						Fields: map[string]string{"candidate": "candidate is a required field"},
					})
					return
				}
				json.NewEncoder(w).Encode(map[string]string{"status": "vote added to mempool"})

			default:
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(errs.Response{Error: "voter has already voted"})
			}
		}))
		defer srv.Close()

		viper.Set("url", srv.URL+"/")
		defer viper.Set("url", "")

		var resp struct {
			Status string `json:"status"`
		}
		if err := send(http.MethodPost, "/v1/vote/submit", database.Vote{VoterID: "V1", Candidate: "A"}, &resp); err != nil {
			t.Fatalf("\t%s\tShould be able to submit a vote: %s", failed, err)
		}
		if resp.Status != "vote added to mempool" {
			t.Fatalf("\t%s\tShould decode the response: %q", failed, resp.Status)
		}
		t.Logf("\t%s\tShould be able to submit a vote.", success)

		err := send(http.MethodPost, "/v1/vote/submit", database.Vote{VoterID: "V1"}, nil)
		if err == nil || !strings.Contains(err.Error(), "candidate is a required field") {
			t.Fatalf("\t%s\tShould report the failing fields: %v", failed, err)
		}
		t.Logf("\t%s\tShould report the failing fields.", success)

		err = send(http.MethodGet, "/v1/other", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "status 409: voter has already voted") {
			t.Fatalf("\t%s\tShould report the node error: %v", failed, err)
		}
		t.Logf("\t%s\tShould report the node error.", success)
	}
}

func Test_Tables(t *testing.T) {
	t.Log("Given the need to lay out node data as tables.")
	{
		blocks := []database.BlockData{
			{Index: 0, PreviousHash: "0", Votes: []database.Vote{}, Hash: strings.Repeat("a", 64)},
			{Index: 1, PreviousHash: strings.Repeat("a", 64), Votes: []database.Vote{{VoterID: "V1", Candidate: "A"}, {VoterID: "V2", Candidate: "B"}}, Proof: 7, Hash: strings.Repeat("0", 64)},
		}

		data := blockTable(blocks)
		if len(data) != 3 {
			t.Fatalf("\t%s\tShould get a header and a row per block: got %d", failed, len(data))
		}
		if data[2][1] != strings.Repeat("0", 16) || data[2][3] != "7" || data[2][4] != "V1:A V2:B" {
			t.Fatalf("\t%s\tShould lay out the block fields: %v", failed, data[2])
		}
		t.Logf("\t%s\tShould lay out the block fields.", success)

		data = tallyTable(map[string]int{"B": 1, "A": 3, "C": 1})
		exp := []string{"A", "B", "C"}
		for i, name := range exp {
			if data[i+1][0] != name {
				t.Fatalf("\t%s\tShould order the tally by votes then name: %v", failed, data)
			}
		}
		t.Logf("\t%s\tShould order the tally by votes then name.", success)
	}
}
