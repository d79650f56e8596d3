package lstore

import (
	"context"
	"github.com/ValentinKolb/stash/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
	"strings"
)

type storeImpl struct {
	data *xsync.MapOf[string, []byte]
}

// NewLocalStore creates a new local store instance.
// This store implementation keeps everything in memory and only lives as long as the process.
func NewLocalStore() store.IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, []byte](),
	}
}

// Factory returns a store.Factory creating fresh local stores.
func Factory() store.Factory {
	return func() (store.IStore, error) {
		return NewLocalStore(), nil
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, store.WrapError(store.RetCUnavailable, "get "+key, err)
	}
	val, ok := s.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	return copyBytes(val), true, nil
}

func (s *storeImpl) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return store.WrapError(store.RetCUnavailable, "set "+key, err)
	}
	if key == "" {
		return store.NewError(store.RetCInvalidOperation, "empty key")
	}
	s.data.Store(key, copyBytes(value))
	return nil
}

func (s *storeImpl) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return store.WrapError(store.RetCUnavailable, "clear", err)
	}
	s.data.Clear()
	return nil
}

func (s *storeImpl) Close() error {
	return nil
}

// Keys implements store.IKeyLister.
func (s *storeImpl) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.WrapError(store.RetCUnavailable, "keys", err)
	}
	var keys []string
	s.data.Range(func(key string, _ []byte) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// copyBytes copies a value so that callers can never alias stored memory
func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
