package state

import (
	"fmt"
	"sync"
)

// Store holds the state tree and applies actions through the Reducer.
//
// Thread-safety: Dispatch is serialized by a mutex. Listeners are called after
// the mutex is released, on the goroutine that dispatched.
type Store struct {
	mu        sync.Mutex
	reducer   *Reducer
	state     Tree
	revision  uint64
	listeners map[uint64]func()
	nextID    uint64
}

// NewStore creates a store from an initial tree. Registered slices missing in
// initial start from their initial state; unknown keys are dropped.
//
// Values should be in runtime form. A value of a Persistable slice that the
// slice cannot serialize is taken as stored data and deserialized, so it is
// not silently left out of later writes.
func NewStore(reducer *Reducer, initial Tree) *Store {
	tree := make(Tree, len(reducer.slices))
	for _, s := range reducer.slices {
		value, ok := initial[s.Name()]
		if !ok || value == nil {
			tree[s.Name()] = s.Initial()
			continue
		}
		if _, persistable := s.(Persistable); persistable && !isTransient(s) {
			if _, err := serializeSlice(s, value); err != nil {
				Logger.Debugf("initial value of slice %s is not in runtime form, deserializing: %v", s.Name(), err)
				value = deserializeSlice(s, value, true)
			}
		}
		tree[s.Name()] = value
	}
	return &Store{
		reducer:   reducer,
		state:     tree,
		listeners: make(map[uint64]func()),
	}
}

// Reducer returns the reducer the store was created with.
func (s *Store) Reducer() *Reducer {
	return s.reducer
}

// GetState returns the current tree. The tree is shared and must not be modified.
func (s *Store) GetState() Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current tree together with its revision.
// The revision increases with every dispatch that produced a new tree, so two
// equal revisions mean the tree reference did not change.
func (s *Store) Snapshot() (Tree, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.revision
}

// Dispatch applies a domain action and notifies all listeners, also when no
// slice handled the action. Lifecycle actions (SERIALIZE, DESERIALIZE) cannot
// be dispatched.
func (s *Store) Dispatch(action Action) error {
	if action.Type == "" {
		return fmt.Errorf("action without type")
	}
	if action.Type.IsLifecycle() {
		return fmt.Errorf("lifecycle action %s cannot be dispatched", action.Type)
	}

	s.mu.Lock()
	next := s.reducer.Reduce(s.state, action)
	if !sameValue(next, s.state) {
		s.state = next
		s.revision++
	}
	listeners := make([]func(), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l()
	}
	return nil
}

// Subscribe registers a listener called after every dispatch.
// The returned function removes the listener; calling it twice is a no-op.
func (s *Store) Subscribe(listener func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
