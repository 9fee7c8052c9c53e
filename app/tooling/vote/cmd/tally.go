package cmd

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var tallyCmd = &cobra.Command{
	Use:   "tally",
	Short: "Print the votes per candidate recorded in the chain.",
	RunE:  tallyRun,
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Print the votes waiting to be mined.",
	RunE:  pendingRun,
}

func init() {
	rootCmd.AddCommand(tallyCmd)
	rootCmd.AddCommand(pendingCmd)
}

func tallyRun(cmd *cobra.Command, args []string) error {
	var tally struct {
		LatestBlock uint64         `json:"latest_block"`
		Candidates  map[string]int `json:"candidates"`
	}
	if err := send(http.MethodGet, "/v1/votes/tally", nil, &tally); err != nil {
		return err
	}

	pterm.Info.Printfln("tally as of block %d", tally.LatestBlock)

	return pterm.DefaultTable.WithHasHeader().WithData(tallyTable(tally.Candidates)).Render()
}

// tallyTable lays out the tally with the leading candidate first.
func tallyTable(candidates map[string]int) pterm.TableData {
	names := make([]string, 0, len(candidates))
	for name := range candidates {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if candidates[names[i]] == candidates[names[j]] {
			return names[i] < names[j]
		}
		return candidates[names[i]] > candidates[names[j]]
	})

	data := pterm.TableData{
		{"Candidate", "Votes"},
	}
	for _, name := range names {
		data = append(data, []string{name, fmt.Sprintf("%d", candidates[name])})
	}

	return data
}

func pendingRun(cmd *cobra.Command, args []string) error {
	var pending struct {
		Count int             `json:"count"`
		Votes []database.Vote `json:"votes"`
	}
	if err := send(http.MethodGet, "/v1/votes/pending", nil, &pending); err != nil {
		return err
	}

	if pending.Count == 0 {
		pterm.Info.Println("no pending votes")
		return nil
	}

	data := pterm.TableData{
		{"Voter", "Candidate"},
	}
	for _, vote := range pending.Votes {
		data = append(data, []string{vote.VoterID, vote.Candidate})
	}

	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
