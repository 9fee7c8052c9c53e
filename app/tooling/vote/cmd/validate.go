package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/ardanlabs/votechain/foundation/blockchain/genesis"
	"github.com/ardanlabs/votechain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/votechain/foundation/blockchain/storage/leveldb"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Ask the node to audit its chain.",
	RunE:  validateRun,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a chain stored on this machine without a running node.",
	RunE:  auditRun,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().String("storage", "disk", "Storage type holding the chain: disk or leveldb.")
	auditCmd.Flags().String("db-path", "zblock/miner1/", "Path to the stored chain.")
	auditCmd.Flags().String("genesis", "zblock/genesis.json", "Path to the genesis file.")

	viper.BindPFlag("storage", auditCmd.Flags().Lookup("storage"))
	viper.BindPFlag("db-path", auditCmd.Flags().Lookup("db-path"))
	viper.BindPFlag("genesis", auditCmd.Flags().Lookup("genesis"))
}

func validateRun(cmd *cobra.Command, args []string) error {
	var resp struct {
		Valid  bool   `json:"valid"`
		Length int    `json:"length"`
		Error  string `json:"error"`
	}
	if err := send(http.MethodGet, "/v1/chain/validate", nil, &resp); err != nil {
		return err
	}

	if !resp.Valid {
		return fmt.Errorf("chain of %d blocks is not valid: %s", resp.Length, resp.Error)
	}

	pterm.Success.Printfln("chain of %d blocks is valid", resp.Length)

	return nil
}

func auditRun(cmd *cobra.Command, args []string) error {
	gen, err := genesis.Load(viper.GetString("genesis"))
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	var strg database.Serializer
	switch viper.GetString("storage") {
	case "disk":
		strg, err = disk.New(viper.GetString("db-path"))
	case "leveldb":
		strg, err = leveldb.New(viper.GetString("db-path"))
	default:
		err = errors.New("storage must be disk or leveldb")
	}
	if err != nil {
		return err
	}

	db, err := database.New(gen.Block(), strg, func(v string, args ...any) {})
	if err != nil {
		strg.Close()
		return err
	}
	defer db.Close()

	if err := db.ValidateChain(); err != nil {
		return fmt.Errorf("chain of %d blocks is not valid: %w", db.Length(), err)
	}

	pterm.Success.Printfln("chain of %d blocks is valid", db.Length())

	return nil
}
