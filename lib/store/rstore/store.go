package rstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/stash/lib/store"
	"github.com/redis/go-redis/v9"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultPrefix namespaces all keys written by stash
	DefaultPrefix = "stash:"
	// scanCount is the COUNT hint used when iterating keys
	scanCount = 256
)

type storeImpl struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the redis server at redisURL (redis://host:port/db)
// and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, redisURL string, prefix string) (store.IStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, store.WrapError(store.RetCInvalidOperation, "parse redis url", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, store.WrapError(store.RetCUnavailable, "connect to redis", err)
	}

	store.Logger.Infof("connected to redis at %s (db %d)", opts.Addr, opts.DB)
	return NewRedisStoreWithClient(client, prefix), nil
}

// NewRedisStoreWithClient creates a store from an existing redis client.
// An empty prefix selects DefaultPrefix.
func NewRedisStoreWithClient(client *redis.Client, prefix string) store.IStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &storeImpl{
		client: client,
		prefix: prefix,
	}
}

// Factory returns a store.Factory connecting to redisURL.
func Factory(redisURL, prefix string) store.Factory {
	return func() (store.IStore, error) {
		return NewRedisStore(context.Background(), redisURL, prefix)
	}
}

// key generates the redis key for a store key
func (s *storeImpl) key(key string) string {
	return s.prefix + key
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, store.WrapError(store.CodeFromContext(ctx), "get "+key, err)
	}
	return val, true, nil
}

func (s *storeImpl) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return store.NewError(store.RetCInvalidOperation, "empty key")
	}
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return store.WrapError(store.CodeFromContext(ctx), "set "+key, err)
	}
	return nil
}

func (s *storeImpl) Clear(ctx context.Context) error {
	keys, err := s.scan(ctx, "")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return store.WrapError(store.CodeFromContext(ctx), "clear", err)
	}
	return nil
}

func (s *storeImpl) Close() error {
	return s.client.Close()
}

// Keys implements store.IKeyLister.
func (s *storeImpl) Keys(ctx context.Context, prefix string) ([]string, error) {
	redisKeys, err := s.scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(redisKeys))
	for _, k := range redisKeys {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// scan returns the raw redis keys under s.prefix+prefix
func (s *storeImpl) scan(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	match := escapeGlob(s.prefix+prefix) + "*"
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, store.WrapError(store.CodeFromContext(ctx), fmt.Sprintf("scan %s", match), err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// escapeGlob escapes the characters redis treats as glob patterns
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
