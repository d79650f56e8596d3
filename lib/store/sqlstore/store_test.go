package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/stash/lib/store"
	storetesting "github.com/ValentinKolb/stash/lib/store/testing"
)

func TestSQLiteStore(t *testing.T) {
	storetesting.RunStoreTests(t, "SQLiteStore", func(t *testing.T) store.IStore {
		s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "stash.db"))
		if err != nil {
			t.Fatalf("failed to open sqlite store: %v", err)
		}
		return s
	})
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	if err := s.Set(ctx, "redux-state-42", []byte(`{"_timestamp":1}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to reopen sqlite store: %v", err)
	}
	defer reopened.Close()

	value, exists, err := reopened.Get(ctx, "redux-state-42")
	if err != nil || !exists {
		t.Fatalf("expected value after reopen: exists=%v err=%v", exists, err)
	}
	if string(value) != `{"_timestamp":1}` {
		t.Errorf("unexpected value after reopen: %s", value)
	}
}

func TestNewSQLiteStoreBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "stash.db")
	if _, err := NewSQLiteStore(context.Background(), path); err == nil {
		t.Errorf("expected error for a path in a missing directory")
	}
}
