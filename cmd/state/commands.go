package state

import (
	"bufio"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/stash/cmd/util"
	"github.com/ValentinKolb/stash/lib/persist"
	"github.com/ValentinKolb/stash/lib/state/slices"
	"github.com/ValentinKolb/stash/lib/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"strings"
	"time"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [user-id]",
		Short: "Prints the persisted blob of a user (logged-out blob without user id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := ""
			if len(args) == 1 {
				userID = persist.NormalizeUserID(args[0])
			}
			subKey, _ := cmd.Flags().GetString("subkey")
			output, _ := cmd.Flags().GetString("output")

			key := persist.SubKey(persist.StorageKey(userID), subKey)
			data, found, err := backend.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no state stored under %s", key)
			}
			blob, err := blobFormat.Deserialize(data)
			if err != nil {
				return fmt.Errorf("stored state under %s is unreadable: %w", key, err)
			}

			now := time.Now()
			fresh := persist.IsFresh(blob, conf.MaxAge, now)
			out := cmd.ErrOrStderr()
			util.Detail(out, "key", key)
			util.Detail(out, "size", fmt.Sprintf("%d bytes", len(data)))
			if ts, ok := persist.BlobTimestamp(blob); ok {
				util.Detail(out, "age", now.Sub(time.UnixMilli(ts)).Round(time.Second))
			}
			util.Detail(out, "fresh", fresh)
			if subKey == "" {
				util.Detail(out, "valid", persist.IsValid(key, blob, conf.MaxAge, now))
			}

			return printTree(cmd, output, blob)
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [prefix]",
		Short: "Lists the persisted keys starting with prefix (default redux-state-)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lister, ok := backend.(store.IKeyLister)
			if !ok {
				return fmt.Errorf("backend %s cannot list keys", conf.Backend)
			}
			prefix := persist.KeyPrefix
			if len(args) == 1 {
				prefix = args[0]
			}
			keys, err := lister.Keys(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Removes all persisted state from the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes && !confirm(cmd, "remove all persisted state?") {
				return fmt.Errorf("aborted")
			}
			reducer, err := slices.NewReducer()
			if err != nil {
				return err
			}
			r := persist.NewRehydrator(conf, persist.Environment{}, backend, reducer, persist.WithSerializer(blobFormat))
			if err := r.ResetState(cmd.Context()); err != nil {
				return err
			}
			util.Success("persisted state removed")
			return nil
		},
	}
)

// printTree writes a decoded blob in the requested format to stdout
func printTree(cmd *cobra.Command, format string, tree map[string]any) error {
	w := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid output format %s", format)
	}
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
