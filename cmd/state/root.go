package state

import (
	"github.com/ValentinKolb/stash/cmd/util"
	"github.com/ValentinKolb/stash/lib/common"
	"github.com/ValentinKolb/stash/lib/serializer"
	"github.com/ValentinKolb/stash/lib/store"
	"github.com/spf13/cobra"
)

var (
	conf       common.PersistConfig
	backend    store.IStore
	blobFormat serializer.IBlobSerializer

	// StateCommands represents the command group inspecting persisted state
	StateCommands = &cobra.Command{
		Use:                "state",
		Short:              "Inspect and reset persisted state",
		PersistentPreRunE:  openBackend,
		PersistentPostRunE: closeBackend,
	}
)

func init() {
	StateCommands.AddCommand(getCmd)
	StateCommands.AddCommand(keysCmd)
	StateCommands.AddCommand(resetCmd)

	getCmd.Flags().String("subkey", "", util.WrapString("Read the blob stored under this sub-key (e.g. preferences)"))
	getCmd.Flags().StringP("output", "o", "yaml", util.WrapString("Output format (yaml, json)"))
	resetCmd.Flags().Bool("yes", false, util.WrapString("Do not ask for confirmation"))
}

// openBackend reads the configuration and opens the configured backend
func openBackend(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if conf, err = util.GetPersistConfig(); err != nil {
		return err
	}
	if err = common.InitLoggers(conf); err != nil {
		return err
	}
	if blobFormat, err = util.GetSerializer(conf); err != nil {
		return err
	}
	backend, err = util.GetStore(conf)
	return err
}

func closeBackend(_ *cobra.Command, _ []string) error {
	if backend == nil {
		return nil
	}
	return backend.Close()
}
