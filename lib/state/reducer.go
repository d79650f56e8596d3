package state

import (
	"fmt"
	"github.com/ValentinKolb/stash/lib/common"
	"github.com/lni/dragonboat/v4/logger"
	"reflect"
	"sort"
)

var Logger = logger.GetLogger(common.LoggerState)

// CurrentUserSlice is the name of the slice carrying the authenticated user
const CurrentUserSlice = "currentUser"

// --------------------------------------------------------------------------
// Combined Reducer (slice registry)
// --------------------------------------------------------------------------

// Reducer combines a set of slices into one reducer over a Tree.
// It is the slice registry: every slice that is part of the state is
// registered here exactly once.
type Reducer struct {
	slices []Slice
	byName map[string]Slice
}

// NewReducer registers the given slices. Slice names must be unique and non-empty.
func NewReducer(slices ...Slice) (*Reducer, error) {
	r := &Reducer{
		byName: make(map[string]Slice, len(slices)),
	}
	for _, s := range slices {
		if err := r.register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Reducer) register(s Slice) error {
	if s == nil || s.Name() == "" {
		return fmt.Errorf("slice must have a name")
	}
	if _, ok := r.byName[s.Name()]; ok {
		return fmt.Errorf("slice %q registered twice", s.Name())
	}
	r.slices = append(r.slices, s)
	r.byName[s.Name()] = s
	return nil
}

// Slice returns the registered slice with the given name.
func (r *Reducer) Slice(name string) (Slice, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns the registered slice names in registration order.
func (r *Reducer) Names() []string {
	names := make([]string, 0, len(r.slices))
	for _, s := range r.slices {
		names = append(names, s.Name())
	}
	return names
}

// SubKeys returns slice name -> storage sub-key for every top-level slice
// that is stored under its own sub-key.
func (r *Reducer) SubKeys() map[string]string {
	keys := make(map[string]string)
	for _, s := range r.slices {
		if sk, ok := s.(SubKeyed); ok && sk.StorageSubKey() != "" && !isTransient(s) {
			keys[s.Name()] = sk.StorageSubKey()
		}
	}
	return keys
}

// Initial returns a tree where every slice holds its initial state.
func (r *Reducer) Initial() Tree {
	tree := make(Tree, len(r.slices))
	for _, s := range r.slices {
		tree[s.Name()] = s.Initial()
	}
	return tree
}

// Reduce applies an action to the tree.
//
//   - ActionSerialize returns the storage-safe tree of every non transient slice.
//   - ActionDeserialize returns the runtime tree, every slice initialised.
//   - Any other action is passed to every slice; missing slices start from Initial.
//
// For domain actions the input tree itself is returned when every slice
// returned the value it was given, so callers can detect a no-op by identity.
// Keys of the input tree that belong to no registered slice are dropped.
func (r *Reducer) Reduce(tree Tree, action Action) Tree {
	switch action.Type {
	case ActionSerialize:
		return r.serialize(tree)
	case ActionDeserialize:
		return r.deserialize(tree)
	}

	next := make(Tree, len(r.slices))
	changed := len(tree) != len(r.slices)
	for _, s := range r.slices {
		current, ok := tree[s.Name()]
		if !ok {
			current = s.Initial()
			changed = true
		}
		value := s.Reduce(current, action)
		if !sameValue(value, current) {
			changed = true
		}
		next[s.Name()] = value
	}
	if !changed {
		return tree
	}
	return next
}

// --------------------------------------------------------------------------
// Lifecycle helpers
// --------------------------------------------------------------------------

func (r *Reducer) serialize(tree Tree) Tree {
	out := make(Tree, len(r.slices))
	for _, s := range r.slices {
		if isTransient(s) {
			continue
		}
		current, ok := tree[s.Name()]
		if !ok {
			current = s.Initial()
		}
		value, err := serializeSlice(s, current)
		if err != nil {
			// a slice that cannot be stored is left out, it will load as Initial
			Logger.Warningf("failed to serialize slice %s: %v", s.Name(), err)
			continue
		}
		out[s.Name()] = value
	}
	return out
}

func (r *Reducer) deserialize(tree Tree) Tree {
	out := make(Tree, len(r.slices))
	for _, s := range r.slices {
		raw, present := tree[s.Name()]
		out[s.Name()] = deserializeSlice(s, raw, present)
	}
	for _, k := range unknownKeys(tree, r.byName) {
		Logger.Debugf("dropping unknown slice %s", k)
	}
	return out
}

// serializeSlice applies the slice's Serialize, identity if not Persistable
func serializeSlice(s Slice, value any) (out any, err error) {
	p, ok := s.(Persistable)
	if !ok {
		return value, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return p.Serialize(value)
}

// deserializeSlice applies the slice's Deserialize. Missing, malformed or
// transient data yields the slice's initial state; it never fails.
func deserializeSlice(s Slice, raw any, present bool) (out any) {
	if !present || raw == nil || isTransient(s) {
		return s.Initial()
	}
	p, ok := s.(Persistable)
	if !ok {
		return raw
	}
	defer func() {
		if rec := recover(); rec != nil {
			Logger.Warningf("slice %s panicked during deserialize, using initial state: %v", s.Name(), rec)
			out = s.Initial()
		}
	}()
	value, err := p.Deserialize(raw)
	if err != nil {
		Logger.Warningf("slice %s could not be deserialized, using initial state: %v", s.Name(), err)
		return s.Initial()
	}
	return value
}

// sameValue reports whether b is the value a: maps, pointers and slices by
// reference, comparable values with ==. Anything else counts as changed.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return false
	}
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	return false
}

func unknownKeys(tree Tree, known map[string]Slice) []string {
	var keys []string
	for k := range tree {
		if _, ok := known[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
