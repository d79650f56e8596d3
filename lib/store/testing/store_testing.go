package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/stash/lib/store"
)

// StoreFactory is a function that creates a new, empty instance of an IStore implementation
type StoreFactory func(t *testing.T) store.IStore

// RunStoreTests runs the conformance test suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("MissingKey", func(t *testing.T) {
			testMissingKey(t, factory(t))
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory(t))
		})

		t.Run("KeyIsolation", func(t *testing.T) {
			testKeyIsolation(t, factory(t))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t))
		})

		t.Run("CanceledContext", func(t *testing.T) {
			testCanceledContext(t, factory(t))
		})

		t.Run("KeyLister", func(t *testing.T) {
			testKeyLister(t, factory(t))
		})

		t.Run("ConcurrentWrites", func(t *testing.T) {
			testConcurrentWrites(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	defer s.Close()
	ctx := context.Background()

	testKey := "redux-state-42"
	testValue1 := []byte(`{"a":1}`)
	testValue2 := []byte(`{"a":2}`)

	if err := s.Set(ctx, testKey, testValue1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, exists, err := s.Get(ctx, testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if err := s.Set(ctx, testKey, testValue2); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}

	result, exists, err = s.Get(ctx, testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !exists || !bytes.Equal(result, testValue2) {
		t.Errorf("Expected overwritten value %s, got %s (exists=%v)", testValue2, result, exists)
	}

	// mutating a returned value must not change the stored one
	result[0] = 'X'
	again, _, _ := s.Get(ctx, testKey)
	if !bytes.Equal(again, testValue2) {
		t.Errorf("Get should return a copy, stored value changed to %s", again)
	}
}

func testMissingKey(t *testing.T, s store.IStore) {
	defer s.Close()

	value, exists, err := s.Get(context.Background(), "nonexistent-key")
	if err != nil {
		t.Fatalf("Get of a missing key must not fail, got %v", err)
	}
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}
	if value != nil {
		t.Errorf("Expected nil value for missing key, got %q", value)
	}
}

func testClear(t *testing.T, s store.IStore) {
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := s.Set(ctx, fmt.Sprintf("redux-state-%d", i), []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, exists, _ := s.Get(ctx, fmt.Sprintf("redux-state-%d", i)); exists {
			t.Errorf("Key %d should be gone after Clear", i)
		}
	}

	// clearing an empty store is fine
	if err := s.Clear(ctx); err != nil {
		t.Errorf("Clear of an empty store failed: %v", err)
	}

	// the store stays usable
	if err := s.Set(ctx, "after-clear", []byte("v")); err != nil {
		t.Errorf("Set after Clear failed: %v", err)
	}
}

func testKeyIsolation(t *testing.T, s store.IStore) {
	defer s.Close()
	ctx := context.Background()

	keys := map[string][]byte{
		"redux-state-7":             []byte("seven"),
		"redux-state-42":            []byte("forty-two"),
		"redux-state-42:reader":     []byte("reader"),
		"redux-state-logged-out":    []byte("anon"),
		"redux-state-logged-out:ui": []byte("anon-ui"),
	}
	for k, v := range keys {
		if err := s.Set(ctx, k, v); err != nil {
			t.Fatalf("Set %s failed: %v", k, err)
		}
	}
	for k, v := range keys {
		got, exists, err := s.Get(ctx, k)
		if err != nil || !exists {
			t.Fatalf("Get %s failed: exists=%v err=%v", k, exists, err)
		}
		if !bytes.Equal(got, v) {
			t.Errorf("Key %s: expected %s, got %s", k, v, got)
		}
	}
}

func testEdgeCases(t *testing.T, s store.IStore) {
	defer s.Close()
	ctx := context.Background()

	// empty values are stored and found
	if err := s.Set(ctx, "empty", []byte{}); err != nil {
		t.Fatalf("Set of empty value failed: %v", err)
	}
	value, exists, err := s.Get(ctx, "empty")
	if err != nil || !exists {
		t.Errorf("Expected empty value to exist: exists=%v err=%v", exists, err)
	}
	if len(value) != 0 {
		t.Errorf("Expected empty value, got %q", value)
	}

	// empty keys are rejected
	err = s.Set(ctx, "", []byte("v"))
	var storeErr *store.Error
	if !errors.As(err, &storeErr) || storeErr.Code != store.RetCInvalidOperation {
		t.Errorf("Expected RetCInvalidOperation for empty key, got %v", err)
	}

	// large values
	large := bytes.Repeat([]byte("x"), 1<<20)
	if err := s.Set(ctx, "large", large); err != nil {
		t.Fatalf("Set of large value failed: %v", err)
	}
	value, _, _ = s.Get(ctx, "large")
	if !bytes.Equal(value, large) {
		t.Errorf("Large value was not stored correctly (len %d)", len(value))
	}

	// unicode keys
	if err := s.Set(ctx, "redux-state-ü:ß", []byte("v")); err != nil {
		t.Fatalf("Set of unicode key failed: %v", err)
	}
	if _, exists, _ := s.Get(ctx, "redux-state-ü:ß"); !exists {
		t.Errorf("Unicode key not found")
	}
}

func testCanceledContext(t *testing.T, s store.IStore) {
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := s.Get(ctx, "k"); err == nil {
		t.Errorf("Expected Get with canceled context to fail")
	}
	if err := s.Set(ctx, "k", []byte("v")); err == nil {
		t.Errorf("Expected Set with canceled context to fail")
	}
}

func testKeyLister(t *testing.T, s store.IStore) {
	defer s.Close()
	ctx := context.Background()

	lister, ok := s.(store.IKeyLister)
	if !ok {
		t.Skip("store does not implement IKeyLister")
	}

	for _, k := range []string{"redux-state-42", "redux-state-42:reader", "redux-state-7", "other"} {
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := lister.Keys(ctx, "redux-state-42")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	expected := []string{"redux-state-42", "redux-state-42:reader"}
	if fmt.Sprint(keys) != fmt.Sprint(expected) {
		t.Errorf("Expected keys %v, got %v", expected, keys)
	}

	all, err := lister.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 keys, got %v", all)
	}
}

func testConcurrentWrites(t *testing.T, s store.IStore) {
	defer s.Close()
	ctx := context.Background()

	const (
		writers = 8
		rounds  = 25
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				key := fmt.Sprintf("redux-state-%d", w)
				if err := s.Set(ctx, key, []byte(fmt.Sprintf("%d", r))); err != nil {
					t.Errorf("writer %d: Set failed: %v", w, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < writers; w++ {
		value, exists, err := s.Get(ctx, fmt.Sprintf("redux-state-%d", w))
		if err != nil || !exists {
			t.Fatalf("writer %d: Get failed: exists=%v err=%v", w, exists, err)
		}
		if string(value) != fmt.Sprintf("%d", rounds-1) {
			t.Errorf("writer %d: expected last value %d, got %s", w, rounds-1, value)
		}
	}
}
