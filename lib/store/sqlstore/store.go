package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"github.com/ValentinKolb/stash/lib/store"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS stash_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

type storeImpl struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the sqlite database at path and makes sure
// the entry table exists.
func NewSQLiteStore(ctx context.Context, path string) (store.IStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, store.WrapError(store.RetCUnavailable, "open sqlite database", err)
	}
	// sqlite serializes writers anyway, one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, store.WrapError(store.CodeFromContext(ctx), "create schema", err)
	}

	store.Logger.Infof("opened sqlite database %s", path)
	return &storeImpl{db: db}, nil
}

// Factory returns a store.Factory opening the database at path.
func Factory(path string) store.Factory {
	return func() (store.IStore, error) {
		return NewSQLiteStore(context.Background(), path)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM stash_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, store.WrapError(store.CodeFromContext(ctx), "get "+key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *storeImpl) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return store.NewError(store.RetCInvalidOperation, "empty key")
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stash_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return store.WrapError(store.CodeFromContext(ctx), "set "+key, err)
	}
	return nil
}

func (s *storeImpl) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stash_entries`); err != nil {
		return store.WrapError(store.CodeFromContext(ctx), "clear", err)
	}
	return nil
}

func (s *storeImpl) Close() error {
	return s.db.Close()
}

// Keys implements store.IKeyLister.
func (s *storeImpl) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM stash_entries WHERE substr(key, 1, length(?1)) = ?1 ORDER BY key`,
		prefix)
	if err != nil {
		return nil, store.WrapError(store.CodeFromContext(ctx), "keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, store.WrapError(store.RetCInternalError, "scan key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapError(store.RetCInternalError, "iterate keys", err)
	}
	return keys, nil
}
