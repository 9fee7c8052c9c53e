package cmd

import (
	"net/http"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine the pending votes into a new block.",
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
}

func mineRun(cmd *cobra.Command, args []string) error {
	spinner, _ := pterm.DefaultSpinner.Start("mining pending votes")

	var mined struct {
		Index uint64 `json:"index"`
		Hash  string `json:"hash"`
		Votes int    `json:"votes"`
	}
	if err := send(http.MethodPost, "/v1/mine", nil, &mined); err != nil {
		spinner.Fail(err.Error())
		return err
	}

	spinner.Success(pterm.Sprintf("mined block %d with %d votes: %s", mined.Index, mined.Votes, mined.Hash))

	return nil
}
