package state

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
)

// --------------------------------------------------------------------------
// Test slices
// --------------------------------------------------------------------------

const actionIncrement ActionType = "INCREMENT"

// counter is an int slice without persistence hooks
type counter struct{ name string }

func (c counter) Name() string { return c.name }
func (c counter) Initial() any { return 0 }
func (c counter) Reduce(state any, action Action) any {
	if action.Type != actionIncrement {
		return state
	}
	return state.(int) + 1
}

// stamped stores its int state wrapped in a map; Deserialize panics on a bad "n"
type stamped struct{ counter }

func (stamped) Serialize(state any) (any, error) {
	n, ok := state.(int)
	if !ok {
		return nil, errors.New("not an int")
	}
	return map[string]any{"n": n}, nil
}

func (stamped) Deserialize(raw any) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("not a map")
	}
	n, ok := m["n"].(int)
	if !ok {
		panic("n is not an int")
	}
	return n, nil
}

type transient struct{ counter }

func (transient) Transient() bool { return true }

func newTestReducer(t *testing.T) *Reducer {
	t.Helper()
	r, err := NewReducer(
		counter{name: "plain"},
		stamped{counter{name: "stamped"}},
		Combine("nested", counter{name: "kept"}, transient{counter{name: "loading"}}),
		WithStorageSubKey("prefs", counter{name: "prefs"}),
	)
	if err != nil {
		t.Fatalf("NewReducer failed: %v", err)
	}
	return r
}

// --------------------------------------------------------------------------
// Reducer
// --------------------------------------------------------------------------

func TestNewReducerRejectsBadSlices(t *testing.T) {
	if _, err := NewReducer(counter{name: "a"}, counter{name: "a"}); err == nil {
		t.Error("duplicate slice names must be rejected")
	}
	if _, err := NewReducer(counter{}); err == nil {
		t.Error("unnamed slice must be rejected")
	}
	if _, err := NewReducer(nil); err == nil {
		t.Error("nil slice must be rejected")
	}
}

func TestReducerSubKeys(t *testing.T) {
	r := newTestReducer(t)
	want := map[string]string{"prefs": "prefs"}
	if got := r.SubKeys(); !reflect.DeepEqual(got, want) {
		t.Errorf("SubKeys = %v, want %v", got, want)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"plain", "stamped", "nested", "prefs"}) {
		t.Errorf("Names = %v", got)
	}
}

func TestReduceDomainAction(t *testing.T) {
	r := newTestReducer(t)
	tree := r.Reduce(Tree{"plain": 5, "unknown": 1}, Action{Type: actionIncrement})

	want := Tree{
		"plain":   6,
		"stamped": 1,
		"nested":  map[string]any{"kept": 1, "loading": 1},
		"prefs":   1,
	}
	if !reflect.DeepEqual(tree, want) {
		t.Errorf("Reduce = %v, want %v", tree, want)
	}
}

func TestSerialize(t *testing.T) {
	r := newTestReducer(t)
	tree := Tree{
		"plain":   1,
		"stamped": 2,
		"nested":  map[string]any{"kept": 3, "loading": 4},
		"prefs":   5,
	}

	got := r.Reduce(tree, Action{Type: ActionSerialize})
	want := Tree{
		"plain":   1,
		"stamped": map[string]any{"n": 2},
		"nested":  map[string]any{"kept": 3},
		"prefs":   5,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SERIALIZE = %v, want %v", got, want)
	}
}

func TestSerializeFailingSliceIsOmitted(t *testing.T) {
	r := newTestReducer(t)
	got := r.Reduce(Tree{"stamped": "oops"}, Action{Type: ActionSerialize})
	if _, ok := got["stamped"]; ok {
		t.Error("a slice that fails to serialize must be left out")
	}
	if got["plain"] != 0 {
		t.Errorf("missing slices serialize their initial state, got %v", got["plain"])
	}
}

func TestDeserialize(t *testing.T) {
	r := newTestReducer(t)
	tests := []struct {
		name    string
		in      Tree
		stamped any
	}{
		{"valid", Tree{"stamped": map[string]any{"n": 7}}, 7},
		{"missing", Tree{}, 0},
		{"nil", Tree{"stamped": nil}, 0},
		{"error", Tree{"stamped": "garbage"}, 0},
		{"panic", Tree{"stamped": map[string]any{"n": "seven"}}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Reduce(tc.in, Action{Type: ActionDeserialize})
			if got["stamped"] != tc.stamped {
				t.Errorf("stamped = %v, want %v", got["stamped"], tc.stamped)
			}
			if len(got) != 4 {
				t.Errorf("every slice must be present, got %v", got)
			}
		})
	}
}

func TestDeserializeNested(t *testing.T) {
	r := newTestReducer(t)
	got := r.Reduce(Tree{
		"nested": map[string]any{"kept": 3, "loading": 9},
	}, Action{Type: ActionDeserialize})

	want := map[string]any{"kept": 3, "loading": 0}
	if !reflect.DeepEqual(got["nested"], want) {
		t.Errorf("nested = %v, want %v", got["nested"], want)
	}

	got = r.Reduce(Tree{"nested": []any{1}}, Action{Type: ActionDeserialize})
	if !reflect.DeepEqual(got["nested"], map[string]any{"kept": 0, "loading": 0}) {
		t.Errorf("malformed nested state must fall back to initial, got %v", got["nested"])
	}
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

func TestNewStoreFillsMissingSlices(t *testing.T) {
	s := NewStore(newTestReducer(t), Tree{"plain": 3, "stamped": nil, "unknown": true})
	tree := s.GetState()
	if tree["plain"] != 3 || tree["stamped"] != 0 {
		t.Errorf("unexpected tree %v", tree)
	}
	if _, ok := tree["unknown"]; ok {
		t.Error("unknown keys must be dropped")
	}
}

func TestDispatch(t *testing.T) {
	s := NewStore(newTestReducer(t), nil)
	var calls atomic.Int32
	unsubscribe := s.Subscribe(func() { calls.Add(1) })

	_, rev := s.Snapshot()
	if err := s.Dispatch(Action{Type: actionIncrement}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	tree, next := s.Snapshot()
	if next != rev+1 {
		t.Errorf("revision %d, want %d", next, rev+1)
	}
	if tree["plain"] != 1 || calls.Load() != 1 {
		t.Errorf("plain=%v calls=%d", tree["plain"], calls.Load())
	}

	unsubscribe()
	unsubscribe()
	_ = s.Dispatch(Action{Type: actionIncrement})
	if calls.Load() != 1 {
		t.Error("listener called after unsubscribe")
	}
}

func TestReduceKeepsTreeForUnhandledAction(t *testing.T) {
	r := newTestReducer(t)
	tree := r.Reduce(nil, Action{Type: actionIncrement})

	same := r.Reduce(tree, Action{Type: "UNRELATED_ACTION"})
	if !sameValue(same, tree) {
		t.Error("an action no slice handles must return the input tree")
	}
	if !sameValue(same["nested"], tree["nested"]) {
		t.Error("an unchanged combined slice must return its input map")
	}

	next := r.Reduce(tree, Action{Type: actionIncrement})
	if sameValue(next, tree) {
		t.Error("a handled action must return a new tree")
	}
}

func TestDispatchUnhandledActionKeepsRevision(t *testing.T) {
	s := NewStore(newTestReducer(t), nil)
	var calls atomic.Int32
	s.Subscribe(func() { calls.Add(1) })

	_ = s.Dispatch(Action{Type: actionIncrement})
	before, rev := s.Snapshot()
	if err := s.Dispatch(Action{Type: "UNRELATED_ACTION"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	after, next := s.Snapshot()
	if next != rev || !sameValue(after, before) {
		t.Errorf("revision %d -> %d, tree replaced: %v", rev, next, !sameValue(after, before))
	}
	if calls.Load() != 2 {
		t.Errorf("listeners must still be notified, calls=%d", calls.Load())
	}
}

func TestSameValue(t *testing.T) {
	m := map[string]any{"a": 1}
	sl := []int{1, 2}
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same map", m, m, true},
		{"equal map copy", m, map[string]any{"a": 1}, false},
		{"same slice", sl, sl, true},
		{"resliced", sl, sl[:1], false},
		{"equal ints", 3, 3, true},
		{"different types", 3, int64(3), false},
		{"equal structs", struct{ N int }{1}, struct{ N int }{1}, true},
		{"nil", nil, nil, true},
		{"nil and value", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameValue(tt.a, tt.b); got != tt.want {
				t.Errorf("sameValue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewStoreDeserializesStoredValues(t *testing.T) {
	s := NewStore(newTestReducer(t), Tree{
		"stamped": map[string]any{"n": 4},
		"plain":   2,
	})
	tree := s.GetState()
	if tree["stamped"] != 4 {
		t.Errorf("stored value was not deserialized, stamped=%v", tree["stamped"])
	}
	if tree["plain"] != 2 {
		t.Errorf("plain=%v, want 2", tree["plain"])
	}

	out := s.Reducer().Reduce(tree, Action{Type: ActionSerialize})
	if !reflect.DeepEqual(out["stamped"], map[string]any{"n": 4}) {
		t.Errorf("stamped left out of the serialized tree: %v", out)
	}
}

func TestDispatchRejectsLifecycleActions(t *testing.T) {
	s := NewStore(newTestReducer(t), nil)
	for _, a := range []Action{{}, {Type: ActionSerialize}, {Type: ActionDeserialize}} {
		if err := s.Dispatch(a); err == nil {
			t.Errorf("Dispatch(%s) must fail", a)
		}
	}
	if _, rev := s.Snapshot(); rev != 0 {
		t.Errorf("rejected actions changed the revision to %d", rev)
	}
}

func TestListenerMayReadState(t *testing.T) {
	s := NewStore(newTestReducer(t), nil)
	var seen any
	s.Subscribe(func() { seen = s.GetState()["plain"] })
	_ = s.Dispatch(Action{Type: actionIncrement})
	if seen != 1 {
		t.Errorf("listener saw %v", seen)
	}
}

func TestConcurrentDispatch(t *testing.T) {
	s := NewStore(newTestReducer(t), nil)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = s.Dispatch(Action{Type: actionIncrement})
			}
		}()
	}
	wg.Wait()

	tree, rev := s.Snapshot()
	if tree["plain"] != 1000 || rev != 1000 {
		t.Errorf("plain=%v revision=%d, want 1000", tree["plain"], rev)
	}
}
