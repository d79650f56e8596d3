package persist

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/stash/lib/common"
	"github.com/ValentinKolb/stash/lib/serializer"
	"github.com/ValentinKolb/stash/lib/state"
	"github.com/ValentinKolb/stash/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"math/rand/v2"
	"sort"
)

var Logger = logger.GetLogger(common.LoggerPersist)

// ErrNoBackend is returned by CreateInitialStore when persistence is enabled
// but the Rehydrator has no backend.
var ErrNoBackend = errors.New("persist: no storage backend configured")

// Environment describes the process the state is rehydrated in.
type Environment struct {
	// Users identifies the authenticated user
	Users UserProvider
	// SupportSession marks a session where an operator acts on behalf of a
	// user; nothing is read from or written to storage
	SupportSession bool
	// Development enables sympathy and the reset escape hatch
	Development bool
	// Bootstrap is trusted state supplied by the server, may be nil
	Bootstrap state.Tree
}

// Session is the result of CreateInitialStore.
type Session struct {
	Store *state.Store
	// Persistence is nil when state is not persisted
	Persistence *Subscriber
	// Sympathy reports whether persisted state was discarded on startup
	Sympathy bool
}

// Close flushes a pending write and detaches the subscriber.
func (s *Session) Close() {
	if s.Persistence != nil {
		s.Persistence.Close()
	}
}

// Rehydrator builds the initial store of a process from persisted and
// bootstrap state.
type Rehydrator struct {
	config     common.PersistConfig
	env        Environment
	backend    store.IStore
	serializer serializer.IBlobSerializer
	reducer    *state.Reducer
	clock      Clock
	random     func() float64
}

// Option customises a Rehydrator
type Option func(*Rehydrator)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(r *Rehydrator) { r.clock = c }
}

// WithRandom replaces the random source used for sympathy
func WithRandom(f func() float64) Option {
	return func(r *Rehydrator) { r.random = f }
}

// WithSerializer replaces the default JSON blob serializer
func WithSerializer(s serializer.IBlobSerializer) Option {
	return func(r *Rehydrator) { r.serializer = s }
}

// NewRehydrator creates a Rehydrator. backend may be nil when PersistRedux
// is disabled.
func NewRehydrator(config common.PersistConfig, env Environment, backend store.IStore, reducer *state.Reducer, opts ...Option) *Rehydrator {
	r := &Rehydrator{
		config:     config,
		env:        env,
		backend:    backend,
		serializer: serializer.NewJSONSerializer(),
		reducer:    reducer,
		clock:      RealClock(),
		random:     rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.env.Users == nil {
		r.env.Users = StaticUser("")
	}
	if r.config.MaxAge <= 0 {
		r.config.MaxAge = common.DefaultMaxAge
	}
	if r.config.LoadTimeout <= 0 {
		r.config.LoadTimeout = common.DefaultLoadTimeout
	}
	return r
}

// ShouldPersist reports whether state is read from and written to storage.
func (r *Rehydrator) ShouldPersist() bool {
	return r.config.PersistRedux && !r.env.SupportSession
}

// ShouldAddSympathy decides whether this startup ignores persisted state to
// simulate a cold cache. force-sympathy takes precedence over
// no-force-sympathy; without either, only development mode rolls the dice.
func (r *Rehydrator) ShouldAddSympathy() bool {
	if r.config.ForceSympathy {
		return true
	}
	if r.config.NoForceSympathy {
		return false
	}
	return r.env.Development && r.random() < r.config.SympathyProbability
}

// CreateInitialStore loads persisted state, overlays the bootstrap state,
// creates the store and attaches the write subscriber if persistence is on.
//
// Storage failures never fail the startup, they are logged and the state
// falls back to bootstrap only.
func (r *Rehydrator) CreateInitialStore(ctx context.Context) (*Session, error) {
	persist := r.ShouldPersist()
	if persist && r.backend == nil {
		return nil, ErrNoBackend
	}

	if r.env.Development && r.ShouldAddSympathy() {
		Logger.Warningf("skipping initial state rehydration to simulate loading with an empty cache")
		sympathyResets.Inc()
		if !r.env.SupportSession && r.backend != nil {
			clearCtx, cancel := context.WithTimeout(ctx, r.config.LoadTimeout)
			err := r.ResetState(clearCtx)
			cancel()
			if err != nil {
				Logger.Errorf("failed to clear persisted state: %v", err)
			}
		}
		s := &Session{Store: state.NewStore(r.reducer, r.InitialServerState()), Sympathy: true}
		if persist {
			s.Persistence = r.persistOnChange(s.Store)
		}
		return s, nil
	}

	if !persist {
		Logger.Debugf("persist-redux is not enabled, building state from scratch")
		countRehydrate(ResultSkipped)
		s := &Session{Store: state.NewStore(r.reducer, r.InitialServerState())}
		return s, nil
	}

	stored := r.LoadPersisted(ctx)
	for _, subKey := range r.subKeys() {
		stored = Merge(stored, r.LoadSubKey(ctx, subKey))
	}
	merged := Merge(stored, r.InitialServerState())

	s := &Session{Store: state.NewStore(r.reducer, merged)}
	s.Persistence = r.persistOnChange(s.Store)
	return s, nil
}

// ResetState clears every persisted blob of the backend.
func (r *Rehydrator) ResetState(ctx context.Context) error {
	if r.backend == nil {
		return ErrNoBackend
	}
	if err := r.backend.Clear(ctx); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	Logger.Infof("cleared persisted state")
	return nil
}

// InitialServerState returns the bootstrap state, deserialized, restricted to
// the slices the bootstrap provides. Support sessions never use it.
func (r *Rehydrator) InitialServerState() state.Tree {
	if len(r.env.Bootstrap) == 0 || r.env.SupportSession {
		return state.Tree{}
	}
	names := make([]string, 0, len(r.env.Bootstrap))
	for k := range r.env.Bootstrap {
		names = append(names, k)
	}
	return Pick(Deserialize(r.reducer, r.env.Bootstrap), names)
}

// LoadPersisted loads the main blob of the current user. It returns nil if
// the blob is missing, unreadable, too old or belongs to another user.
func (r *Rehydrator) LoadPersisted(ctx context.Context) state.Tree {
	key := StorageKey(r.env.Users.CurrentUserID())
	blob, ok := r.load(ctx, key)
	if !ok {
		return nil
	}
	tree := Deserialize(r.reducer, blob)
	// checked on the deserialized tree: blobs written before the check
	// existed may hold another user's state
	if !IsValidKeyAndState(key, tree) {
		Logger.Warningf("stored state under %s does not belong to the current user, building from scratch", key)
		countRehydrate(ResultMismatch)
		return nil
	}
	countRehydrate(ResultHit)
	return tree
}

// LoadSubKey loads the blob stored under a sub-key of the current user and
// returns the slices stored there. Sub-key blobs are checked for age only.
func (r *Rehydrator) LoadSubKey(ctx context.Context, subKey string) state.Tree {
	key := SubKey(StorageKey(r.env.Users.CurrentUserID()), subKey)
	blob, ok := r.load(ctx, key)
	if !ok {
		return nil
	}
	countRehydrate(ResultHit)
	return Pick(Deserialize(r.reducer, blob), subKeySlices(r.reducer)[subKey])
}

// load fetches, decodes and age-checks one blob
func (r *Rehydrator) load(ctx context.Context, key string) (state.Tree, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.config.LoadTimeout)
	defer cancel()

	data, found, err := r.get(ctx, key)
	if err != nil {
		Logger.Warningf("failed to load stored state %s: %v", key, err)
		countRehydrate(ResultError)
		return nil, false
	}
	if !found {
		Logger.Debugf("no stored state under %s", key)
		countRehydrate(ResultMiss)
		return nil, false
	}

	blob, err := r.serializer.Deserialize(data)
	if err != nil {
		Logger.Warningf("stored state %s is unreadable: %v", key, err)
		countRehydrate(ResultError)
		return nil, false
	}
	if !IsFresh(blob, r.config.MaxAge, r.clock.Now()) {
		Logger.Infof("stored state %s is too old, building from scratch", key)
		countRehydrate(ResultStale)
		return nil, false
	}
	return blob, true
}

// get bounds a backend read by ctx even if the backend ignores it.
// The goroutine of a backend that never returns is abandoned.
func (r *Rehydrator) get(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		data  []byte
		found bool
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		data, found, err := r.backend.Get(ctx, key)
		ch <- result{data, found, err}
	}()

	select {
	case res := <-ch:
		return res.data, res.found, res.err
	case <-ctx.Done():
		return nil, false, store.WrapError(store.CodeFromContext(ctx), "load "+key, ctx.Err())
	}
}

func (r *Rehydrator) subKeys() []string {
	byKey := subKeySlices(r.reducer)
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Rehydrator) persistOnChange(s *state.Store) *Subscriber {
	return PersistOnChange(s, SubscriberOptions{
		Backend:      r.backend,
		Serializer:   r.serializer,
		Users:        r.env.Users,
		Throttle:     r.config.Throttle,
		WriteTimeout: r.config.WriteTimeout,
		Clock:        r.clock,
	})
}
