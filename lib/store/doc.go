// Package store provides the key-value backend abstraction used to persist
// application state blobs.
//
// The package focuses on:
//   - A unified interface (IStore) for get/set/clear across different backends
//   - Pluggable backend architecture through the Factory pattern
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining the operations the
//     persistence layer needs. Values are opaque bytes; encoding is the job
//     of the serializer package. All methods are context aware so callers can
//     bound a hung backend.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. Callers use errors.As to inspect the code,
//     e.g. to tell an unreachable backend (RetCUnavailable) from a bug.
//
// Implementations:
//
//	- Local Store (lstore): in-memory, sharded over xsync maps. Used for
//	  development, tests and single-process runs.
//	  Available in the "github.com/ValentinKolb/stash/lib/store/lstore" package.
//
//	- Redis Store (rstore): go-redis backed store, every key namespaced by a
//	  prefix so Clear only touches entries owned by stash.
//	  Available in the "github.com/ValentinKolb/stash/lib/store/rstore" package.
//
//	- SQLite Store (sqlstore): durable single-file store on modernc.org/sqlite.
//	  Available in the "github.com/ValentinKolb/stash/lib/store/sqlstore" package.
//
// All implementations are checked by the conformance suite in
// "github.com/ValentinKolb/stash/lib/store/testing".
package store
