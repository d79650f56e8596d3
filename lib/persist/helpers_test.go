package persist

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/stash/lib/serializer"
	"github.com/ValentinKolb/stash/lib/state"
	"github.com/ValentinKolb/stash/lib/state/slices"
	"github.com/ValentinKolb/stash/lib/store"
	"github.com/ValentinKolb/stash/lib/store/lstore"
)

// --------------------------------------------------------------------------
// Fake clock
// --------------------------------------------------------------------------

// fakeClock runs due timers synchronously inside Advance
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock and runs every timer that became due
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped || t.fired:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// --------------------------------------------------------------------------
// Recording backend
// --------------------------------------------------------------------------

// recordingStore counts the calls reaching an in-memory backend and can be
// made to fail or hang
type recordingStore struct {
	store.IStore

	mu      sync.Mutex
	gets    int
	sets    int
	clears  int
	getErr  error
	setErr  error
	hangGet chan struct{}

	// setStarted is signalled and setRelease awaited by every Set when non nil
	setStarted chan struct{}
	setRelease chan struct{}
}

func newRecordingStore() *recordingStore {
	return &recordingStore{IStore: lstore.NewLocalStore()}
}

func (r *recordingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	r.gets++
	err, hang := r.getErr, r.hangGet
	r.mu.Unlock()

	if hang != nil {
		// ignores ctx on purpose
		<-hang
	}
	if err != nil {
		return nil, false, err
	}
	return r.IStore.Get(ctx, key)
}

func (r *recordingStore) Set(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	r.sets++
	err, started, release := r.setErr, r.setStarted, r.setRelease
	r.mu.Unlock()
	if release != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}
	if err != nil {
		return err
	}
	return r.IStore.Set(ctx, key, value)
}

func (r *recordingStore) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.clears++
	r.mu.Unlock()
	return r.IStore.Clear(ctx)
}

func (r *recordingStore) calls() (gets, sets, clears int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets, r.sets, r.clears
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

func newTestReducer(t *testing.T) *state.Reducer {
	t.Helper()
	r, err := slices.NewReducer()
	if err != nil {
		t.Fatalf("NewReducer failed: %v", err)
	}
	return r
}

// putBlob stores tree under key as the subscriber would, stamped with ts
func putBlob(t *testing.T, backend store.IStore, key string, tree state.Tree, ts time.Time) {
	t.Helper()
	data, err := serializer.NewJSONSerializer().Serialize(stamp(tree, ts.UnixMilli()))
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if err := backend.Set(context.Background(), key, data); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
}

// readBlob returns the decoded blob under key, nil if missing
func readBlob(t *testing.T, backend store.IStore, key string) state.Tree {
	t.Helper()
	data, found, err := backend.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get %s failed: %v", key, err)
	}
	if !found {
		return nil
	}
	blob, err := serializer.NewJSONSerializer().Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize %s failed: %v", key, err)
	}
	return blob
}

func receiveUser(id int64, username string) state.Action {
	return state.Action{
		Type: slices.ActionCurrentUserReceive,
		Payload: map[string]any{
			"user": map[string]any{"id": id, "username": username},
		},
	}
}

func setPreference(key string, value any) state.Action {
	return state.Action{
		Type:    slices.ActionPreferencesSet,
		Payload: map[string]any{"key": key, "value": value},
	}
}

func receiveChartCounts(siteID string, views int64) state.Action {
	return state.Action{
		Type: slices.ActionStatsChartCountsReceive,
		Payload: map[string]any{
			"siteId": siteID,
			"data": []any{
				map[string]any{"period": "2024-03-01", "unit": "day", "views": views, "visitors": 3},
			},
		},
	}
}

func mustDispatch(t *testing.T, s *state.Store, actions ...state.Action) {
	t.Helper()
	for _, a := range actions {
		if err := s.Dispatch(a); err != nil {
			t.Fatalf("Dispatch %s failed: %v", a.Type, err)
		}
	}
}

// chartCounts digs stats.chart.counts out of a runtime tree
func chartCounts(t *testing.T, tree state.Tree) slices.ChartCounts {
	t.Helper()
	stats, _ := tree["stats"].(map[string]any)
	chart, _ := stats["chart"].(map[string]any)
	counts, ok := chart["counts"].(slices.ChartCounts)
	if !ok {
		t.Fatalf("stats.chart.counts has type %T", chart["counts"])
	}
	return counts
}
