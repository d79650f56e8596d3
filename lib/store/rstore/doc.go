// Package rstore implements store.IStore on top of Redis using go-redis.
//
// Every key is stored as prefix+key (DefaultPrefix is "stash:"), so several
// applications can share one Redis database and Clear only removes entries
// written through the same prefix. Clear and Keys iterate with SCAN instead of
// KEYS to avoid blocking the server.
//
// Usage Example:
//
//	s, err := rstore.NewRedisStore(ctx, "redis://localhost:6379/0", "")
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package rstore
