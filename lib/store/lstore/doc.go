// Package lstore implements a local, in-memory, single-process key-value store based on the
// store.IStore interface. Data is stored entirely in memory and is not persisted
// between process restarts.
//
// Key Features:
//   - Pure in-memory storage on a concurrent xsync map
//   - Values are copied on Set and on Get, callers never share memory with the store
//   - Honors context cancellation so it behaves like a remote backend in tests
//   - Thread-safe operations for concurrent access
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	err := s.Set(ctx, "redux-state-42", blob)
//	value, found, err := s.Get(ctx, "redux-state-42")
//
// Suitable Use Cases:
//
//	The local store is ideal for:
//	- Testing and development environments
//	- Single runs of the CLI where state only has to survive until teardown
package lstore
