// Package persist saves the state tree of a state.Store to a store.IStore
// backend and restores it on the next start.
//
// Storage layout:
//
//	redux-state-<userId>            main blob of a user
//	redux-state-logged-out          main blob when nobody is logged in
//	redux-state-<userId>:<subKey>   slices declaring a storage sub-key
//
// Every blob is the serialized tree plus a "_timestamp" field holding the
// write time in Unix milliseconds. All blobs of one write share the same
// timestamp.
//
// Startup (Rehydrator.CreateInitialStore):
//
//  1. persistence is on if PersistRedux is set and this is no support session
//  2. in development mode "sympathy" may discard all stored state to simulate
//     a cold cache (force-sympathy wins over no-force-sympathy)
//  3. the main blob of the current user is loaded, age checked (MaxAge,
//     inclusive) and identity checked; sub-key blobs are age checked only
//  4. the bootstrap tree overlays the stored tree per top-level slice
//  5. a Subscriber is attached to the new store
//
// Writes (Subscriber) are throttled by a trailing-edge Scheduler: all changes
// within one window result in a single write at the end of the window. A
// write is skipped when the store did not change since the last write or when
// the tree belongs to another user than the one currently logged in, so the
// state of a previous user is never written under the key of the next one.
//
// Storage errors never surface to callers. They are logged through the
// "persist" logger and counted in the stash_* metrics; a failed load starts
// from bootstrap state, a failed write is dropped and not retried.
package persist
