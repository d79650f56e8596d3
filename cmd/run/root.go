package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	vm "github.com/VictoriaMetrics/metrics"
	"github.com/ValentinKolb/stash/cmd/util"
	"github.com/ValentinKolb/stash/lib/common"
	"github.com/ValentinKolb/stash/lib/persist"
	"github.com/ValentinKolb/stash/lib/state"
	"github.com/ValentinKolb/stash/lib/state/slices"
	"github.com/ValentinKolb/stash/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
)

var (
	log = logger.GetLogger(common.LoggerCLI)

	// RunCmd represents the run command
	RunCmd = &cobra.Command{
		Use:   "run",
		Short: "Rehydrate the state, apply actions from stdin and persist the result",
		Long: `Rehydrate the application state from the configured backend, apply the actions
read from stdin and persist every change, throttled. Each input line is one
action in JSON or YAML flow syntax, e.g.

  {"type": "PREFERENCES_SET", "payload": {"key": "theme", "value": "dark"}}

Pending writes are flushed at the end of the input and on SIGINT/SIGTERM.
The configuration can be set via command line flags or environment variables.
The format of the environment variables is STASH_<flag> (e.g. STASH_BACKEND=redis)`,
		PreRunE: processConfig,
		RunE:    run,
	}

	conf common.PersistConfig
)

func init() {
	key := "user"
	RunCmd.Flags().String(key, "", util.WrapString("ID of the authenticated user, empty for the logged-out user"))

	key = "support"
	RunCmd.Flags().Bool(key, false, util.WrapString("Run as a support session: nothing is read from or written to the backend"))

	key = "dev"
	RunCmd.Flags().Bool(key, false, util.WrapString("Development mode: enables sympathy (random cold starts)"))

	key = "bootstrap"
	RunCmd.Flags().String(key, "", util.WrapString("YAML or JSON file with server bootstrap state; its slices overlay the persisted state"))

	key = "print"
	RunCmd.Flags().Bool(key, true, util.WrapString("Print the final state tree as YAML"))

	key = "metrics"
	RunCmd.Flags().Bool(key, false, util.WrapString("Print the persistence metrics in Prometheus text format on exit"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
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
	log.Debugf("configuration:%s", conf.String())
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID := persist.NormalizeUserID(viper.GetString("user"))

	env := persist.Environment{
		Users:          persist.StaticUser(userID),
		SupportSession: viper.GetBool("support"),
		Development:    viper.GetBool("dev"),
	}
	if path := viper.GetString("bootstrap"); path != "" {
		bootstrap, err := readBootstrap(path)
		if err != nil {
			return err
		}
		env.Bootstrap = bootstrap
	}

	blobFormat, err := util.GetSerializer(conf)
	if err != nil {
		return err
	}
	var backend store.IStore
	if conf.PersistRedux && !env.SupportSession {
		if backend, err = util.GetStore(conf); err != nil {
			return err
		}
		defer backend.Close()
	}

	reducer, err := slices.NewReducer()
	if err != nil {
		return err
	}
	session, err := persist.NewRehydrator(conf, env, backend, reducer, persist.WithSerializer(blobFormat)).CreateInitialStore(ctx)
	if err != nil {
		return err
	}
	if session.Sympathy {
		util.Banner("Skipping initial state rehydration. (This runs during random starts in development mode, to simulate loading the application with an empty cache.)")
	}

	// the store must belong to the authenticated user, otherwise nothing is written
	if userID != "" && persist.UserIDFromTree(session.Store.GetState()) != userID {
		receive := state.Action{
			Type:    slices.ActionCurrentUserReceive,
			Payload: map[string]any{"user": map[string]any{"id": userID}},
		}
		if err := session.Store.Dispatch(receive); err != nil {
			return err
		}
	}

	applied, err := applyUntilSignal(ctx, session.Store, cmd.InOrStdin())
	session.Close()
	if err != nil {
		return err
	}

	if viper.GetBool("print") {
		if err := printState(cmd.OutOrStdout(), reducer, session.Store.GetState()); err != nil {
			return err
		}
	}
	if session.Persistence != nil {
		util.Success("applied %d actions, %s", applied, session.Persistence.Stats())
	} else {
		util.Warning("applied %d actions, state was not persisted", applied)
	}
	if viper.GetBool("metrics") {
		vm.WritePrometheus(cmd.OutOrStdout(), false)
	}
	return nil
}

// applyUntilSignal dispatches the actions read from r until the input ends
// or the process receives SIGINT/SIGTERM.
func applyUntilSignal(ctx context.Context, s *state.Store, r io.Reader) (int, error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	return applyUntil(ctx, s, r, sigChan)
}

// applyUntil is applyUntilSignal with the signal channel supplied. Once it
// returns no further action reaches s, even if the reader is still blocked.
func applyUntil(ctx context.Context, s *state.Store, r io.Reader, stop <-chan os.Signal) (int, error) {
	gate := &inputGate{store: s}

	type result struct {
		applied int
		err     error
	}
	done := make(chan result, 1)
	go func() {
		n, err := applyActions(r, gate.dispatch)
		done <- result{n, err}
	}()

	select {
	case res := <-done:
		gate.close()
		return res.applied, res.err
	case sig := <-stop:
		log.Infof("received %s, flushing state", sig)
		return gate.close(), nil
	case <-ctx.Done():
		gate.close()
		return 0, ctx.Err()
	}
}

var errInputClosed = errors.New("input closed")

// inputGate forwards actions to the store until it is closed
type inputGate struct {
	mu      sync.Mutex
	store   *state.Store
	closed  bool
	applied int
}

func (g *inputGate) dispatch(action state.Action) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errInputClosed
	}
	if err := g.store.Dispatch(action); err != nil {
		return err
	}
	g.applied++
	return nil
}

// close stops forwarding and returns the number of dispatched actions
func (g *inputGate) close() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return g.applied
}

// applyActions dispatches one action per non-empty line. Lines starting
// with # are comments.
func applyActions(r io.Reader, dispatch func(state.Action) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	applied := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var action state.Action
		if err := yaml.Unmarshal([]byte(text), &action); err != nil {
			return applied, fmt.Errorf("line %d: invalid action: %w", line, err)
		}
		if err := dispatch(action); err != nil {
			return applied, fmt.Errorf("line %d: %w", line, err)
		}
		applied++
	}
	return applied, scanner.Err()
}

// readBootstrap reads the bootstrap state file. JSON is read as YAML.
func readBootstrap(path string) (state.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap state: %w", err)
	}
	var tree state.Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse bootstrap state %s: %w", path, err)
	}
	return tree, nil
}

// printState prints the serialized form of the tree, which is what would be
// persisted (sub-key slices included, transient slices left out)
func printState(w io.Writer, reducer *state.Reducer, tree state.Tree) error {
	result := persist.Serialize(reducer, tree)
	out := persist.Merge(result.Main)
	for _, sub := range result.Keys {
		out = persist.Merge(out, sub)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(out)); err != nil {
		return err
	}
	return enc.Close()
}
