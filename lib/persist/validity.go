package persist

import (
	"encoding/json"
	"github.com/ValentinKolb/stash/lib/state"
	"math"
	"time"
)

// BlobTimestamp returns the write time embedded in a blob, in Unix milliseconds.
func BlobTimestamp(blob state.Tree) (int64, bool) {
	switch ts := blob[TimestampField].(type) {
	case int64:
		return ts, true
	case int:
		return int64(ts), true
	case float64:
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return 0, false
		}
		return int64(ts), true
	case json.Number:
		i, err := ts.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// IsFresh reports whether the blob carries a timestamp and is at most maxAge old.
// A blob exactly maxAge old is still fresh.
func IsFresh(blob state.Tree, maxAge time.Duration, now time.Time) bool {
	ts, ok := BlobTimestamp(blob)
	if !ok {
		return false
	}
	return now.UnixMilli()-ts <= maxAge.Milliseconds()
}

// IsValidKeyAndState reports whether key is the storage key of the user the
// tree belongs to. It prevents the state of one user from being read or
// written under the key of another, e.g. after a logout on a shared device.
func IsValidKeyAndState(key string, tree state.Tree) bool {
	return key == StorageKey(UserIDFromTree(tree))
}

// IsValid reports whether a blob loaded from key may be rehydrated: it must be
// fresh and belong to the user of key.
func IsValid(key string, blob state.Tree, maxAge time.Duration, now time.Time) bool {
	return IsFresh(blob, maxAge, now) && IsValidKeyAndState(key, blob)
}
