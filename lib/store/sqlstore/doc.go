// Package sqlstore implements store.IStore on a single SQLite file using the
// pure Go modernc.org/sqlite driver, so persisted state survives process
// restarts without an external server.
//
// All entries live in one table:
//
//	stash_entries(key TEXT PRIMARY KEY, value BLOB, updated_at INTEGER)
//
// updated_at holds the Unix milliseconds of the last write and is only kept
// for inspection; blob age is decided by the persistence layer from the
// timestamp embedded in the blob itself.
package sqlstore
