package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	fromBlock string
	toBlock   string
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the blocks of the chain.",
	RunE:  chainRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.Flags().StringVarP(&fromBlock, "from", "f", "", "First block number, or latest.")
	chainCmd.Flags().StringVarP(&toBlock, "to", "t", "latest", "Last block number, or latest.")
}

func chainRun(cmd *cobra.Command, args []string) error {
	path := "/v1/blocks/list"
	if fromBlock != "" {
		path = fmt.Sprintf("%s/%s/%s", path, fromBlock, toBlock)
	}

	var blocks []database.BlockData
	if err := send(http.MethodGet, path, nil, &blocks); err != nil {
		return err
	}

	if len(blocks) == 0 {
		pterm.Info.Println("no blocks in range")
		return nil
	}

	return pterm.DefaultTable.WithHasHeader().WithData(blockTable(blocks)).Render()
}

// blockTable lays out the blocks as rows of a table.
func blockTable(blocks []database.BlockData) pterm.TableData {
	data := pterm.TableData{
		{"Index", "Hash", "Previous", "Proof", "Votes"},
	}

	for _, bd := range blocks {
		votes := make([]string, len(bd.Votes))
		for i, vote := range bd.Votes {
			votes[i] = vote.String()
		}

		data = append(data, []string{
			fmt.Sprintf("%d", bd.Index),
			short(bd.Hash),
			short(bd.PreviousHash),
			fmt.Sprintf("%d", bd.Proof),
			strings.Join(votes, " "),
		})
	}

	return data
}

func short(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16]
}
