package cmd

import (
	"net/http"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	voterID   string
	candidate string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a vote for a candidate.",
	RunE:  submitRun,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVarP(&voterID, "voter", "v", "", "Id of the voter on the allow list.")
	submitCmd.Flags().StringVarP(&candidate, "candidate", "c", "", "Candidate to vote for.")
	submitCmd.MarkFlagRequired("voter")
	submitCmd.MarkFlagRequired("candidate")
}

func submitRun(cmd *cobra.Command, args []string) error {
	vote := struct {
		VoterID   string `json:"voter_id"`
		Candidate string `json:"candidate"`
	}{
		VoterID:   voterID,
		Candidate: candidate,
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := send(http.MethodPost, "/v1/vote/submit", vote, &resp); err != nil {
		return err
	}

	pterm.Success.Printfln("%s: %s", voterID, resp.Status)

	return nil
}
