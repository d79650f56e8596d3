package cmd

import (
	"fmt"
	"github.com/ValentinKolb/stash/cmd/run"
	"github.com/ValentinKolb/stash/cmd/state"
	"github.com/ValentinKolb/stash/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "stash",
		Short: "persist and rehydrate application state",
		Long: fmt.Sprintf(`stash (v%s)

Persists an application state tree per user into a key-value backend
(memory, redis, sqlite) and rehydrates it on the next start.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of stash",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stash v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(run.RunCmd)
	RootCmd.AddCommand(state.StateCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupPersistFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
