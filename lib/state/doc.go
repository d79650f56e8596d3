// Package state implements the application state model: a Tree of
// independently reduced slices, the Reducer combining them and a Store that
// dispatches actions and notifies subscribers.
//
// Slices are plain values implementing Slice. Persistence behaviour is opt-in
// through capability interfaces instead of properties attached to functions:
//
//   - Persistable: custom Serialize/Deserialize (identity otherwise)
//   - SubKeyed: stored under its own storage sub-key (see WithStorageSubKey)
//   - Transient: never stored, always starts from Initial
//
// The two lifecycle actions ActionSerialize and ActionDeserialize are handled
// by Reducer.Reduce and never reach slice Reduce methods. Deserialize is
// forgiving: a slice whose stored data is missing, malformed or makes it
// panic starts from its initial state while the rest of the tree is kept.
package state
