// Package cmd contains the vote app.
package cmd

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file holding the flag values.")
	rootCmd.PersistentFlags().StringP("url", "u", "http://localhost:8080", "Url of the node public api.")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Timeout for each call to the node, 0 waits forever.")

	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

var rootCmd = &cobra.Command{
	Use:           "vote",
	Short:         "Cast and inspect votes recorded by a voting node",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command specified on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// initConfig reads the config file and the VOTE_ environment variables.
// Flags set on the command line take precedence over both.
func initConfig() {
	viper.SetEnvPrefix("VOTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		pterm.Warning.Printfln("unable to read config file %s: %s", cfgFile, err)
	}
}
