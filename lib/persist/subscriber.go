package persist

import (
	"context"
	"github.com/ValentinKolb/stash/lib/common"
	"github.com/ValentinKolb/stash/lib/serializer"
	"github.com/ValentinKolb/stash/lib/state"
	"github.com/ValentinKolb/stash/lib/store"
	"golang.org/x/sync/errgroup"
	"sync"
	"sync/atomic"
	"time"
)

// UserProvider returns the id of the authenticated user, "" when logged out.
type UserProvider interface {
	CurrentUserID() string
}

// UserProviderFunc adapts a function to UserProvider
type UserProviderFunc func() string

func (f UserProviderFunc) CurrentUserID() string { return f() }

// StaticUser is a UserProvider that always returns the same id
type StaticUser string

func (u StaticUser) CurrentUserID() string { return string(u) }

// TreeUser reads the user id from the currentUser slice of a store.
func TreeUser(s *state.Store) UserProvider {
	return UserProviderFunc(func() string { return UserIDFromTree(s.GetState()) })
}

// SubscriberOptions configures PersistOnChange.
type SubscriberOptions struct {
	Backend store.IStore
	// Serializer encodes blobs, defaults to JSON
	Serializer serializer.IBlobSerializer
	// Users identifies the authenticated user, defaults to TreeUser of the store
	Users UserProvider
	// Throttle is the write window, defaults to common.DefaultThrottle
	Throttle time.Duration
	// WriteTimeout bounds the backend calls of one write, defaults to common.DefaultWriteTimeout
	WriteTimeout time.Duration
	Clock        Clock
}

// Subscriber writes the state of a store to a backend after changes,
// at most once per throttle window.
type Subscriber struct {
	store     *state.Store
	opts      SubscriberOptions
	sched     *Scheduler
	stats     *writeStats
	unsub     func()
	closed    atomic.Bool
	closeOnce sync.Once

	// guarded by the scheduler: save never runs concurrently
	lastRevision uint64
	wrote        bool
}

// PersistOnChange subscribes to s and persists every change, throttled.
func PersistOnChange(s *state.Store, opts SubscriberOptions) *Subscriber {
	if opts.Users == nil {
		opts.Users = TreeUser(s)
	}
	if opts.Throttle <= 0 {
		opts.Throttle = common.DefaultThrottle
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = common.DefaultWriteTimeout
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Serializer == nil {
		opts.Serializer = serializer.NewJSONSerializer()
	}

	p := &Subscriber{
		store: s,
		opts:  opts,
		stats: newWriteStats(),
	}
	p.sched = NewScheduler(opts.Throttle, opts.Clock, p.save)
	p.unsub = s.Subscribe(p.notify)
	return p
}

func (p *Subscriber) notify() {
	if p.closed.Load() {
		return
	}
	p.stats.notifications.Inc(1)
	p.sched.Schedule()
}

// Flush performs a pending write now, e.g. before the process exits, and
// waits for a write already in progress. It reports whether a write was pending.
func (p *Subscriber) Flush() bool {
	return p.sched.Flush()
}

// Close flushes a pending write and stops listening to the store. When it
// returns no write is in progress.
func (p *Subscriber) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.unsub()
		p.sched.Flush()
	})
}

// Stats returns the write statistics of this subscriber.
func (p *Subscriber) Stats() Stats {
	return p.stats.snapshot()
}

// Pending reports whether a write is scheduled.
func (p *Subscriber) Pending() bool {
	return p.sched.Pending()
}

// save writes the current tree. It is only called by the scheduler.
func (p *Subscriber) save() {
	tree, revision := p.store.Snapshot()
	if p.wrote && revision == p.lastRevision {
		p.stats.observeSkip(SkipUnchanged)
		return
	}

	key := StorageKey(p.opts.Users.CurrentUserID())
	if !IsValidKeyAndState(key, tree) {
		Logger.Debugf("not persisting state, %s does not belong to the current user", key)
		p.stats.observeSkip(SkipIdentity)
		return
	}
	p.lastRevision = revision
	p.wrote = true

	result := Serialize(p.store.Reducer(), tree)
	ts := p.opts.Clock.Now().UnixMilli()

	blobs := map[string][]byte{}
	encode := func(key string, tree state.Tree) error {
		data, err := p.opts.Serializer.Serialize(stamp(tree, ts))
		if err != nil {
			return err
		}
		blobs[key] = data
		return nil
	}
	err := encode(key, result.Main)
	for subKey, tree := range result.Keys {
		if err != nil {
			break
		}
		err = encode(SubKey(key, subKey), tree)
	}
	if err != nil {
		Logger.Errorf("failed to encode state for %s: %v", key, err)
		p.stats.observeWrite(0, 0, err)
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.WriteTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	size := 0
	for k, data := range blobs {
		size += len(data)
		g.Go(func() error {
			return p.opts.Backend.Set(gctx, k, data)
		})
	}
	err = g.Wait()
	if err != nil {
		Logger.Errorf("failed to persist state under %s: %v", key, err)
	} else {
		Logger.Debugf("persisted %d bytes under %s (%d blobs)", size, key, len(blobs))
	}
	p.stats.observeWrite(size, time.Since(start), err)
}
