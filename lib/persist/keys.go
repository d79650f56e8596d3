package persist

import (
	"encoding/json"
	"github.com/ValentinKolb/stash/lib/state"
	"math"
	"strconv"
	"strings"
)

const (
	// KeyPrefix is the prefix of every primary storage key
	KeyPrefix = "redux-state-"
	// LoggedOutKey is the storage key used when nobody is logged in
	LoggedOutKey = KeyPrefix + "logged-out"
	// TimestampField is the blob field holding the write time in Unix milliseconds
	TimestampField = "_timestamp"
)

// StorageKey returns the primary storage key for a user id.
// The empty id is the logged-out user.
func StorageKey(userID string) string {
	if userID == "" {
		return LoggedOutKey
	}
	return KeyPrefix + userID
}

// SubKey returns the storage key of a sub-key blob.
func SubKey(key, subKey string) string {
	if subKey == "" {
		return key
	}
	return key + ":" + subKey
}

// UserIDFromTree returns the normalized id of the currentUser slice, or ""
// if the tree carries no authenticated user.
func UserIDFromTree(tree state.Tree) string {
	current, ok := tree[state.CurrentUserSlice]
	if !ok || current == nil {
		return ""
	}
	switch u := current.(type) {
	case state.UserIdentifier:
		return NormalizeUserID(u.UserID())
	case map[string]any:
		return NormalizeUserID(u["id"])
	case state.Tree:
		return NormalizeUserID(u["id"])
	default:
		return ""
	}
}

// NormalizeUserID formats the user id representations produced by the
// supported decoders. Zero, empty and non-integral values mean "no user".
func NormalizeUserID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		id = strings.TrimSpace(id)
		if id == "0" {
			return ""
		}
		return id
	case int:
		return formatInt(int64(id))
	case int32:
		return formatInt(int64(id))
	case int64:
		return formatInt(id)
	case uint:
		return formatInt(int64(id))
	case uint32:
		return formatInt(int64(id))
	case uint64:
		if id == 0 {
			return ""
		}
		return strconv.FormatUint(id, 10)
	case float64:
		if id != math.Trunc(id) || math.IsInf(id, 0) {
			return ""
		}
		return formatInt(int64(id))
	case json.Number:
		return NormalizeUserID(id.String())
	default:
		return ""
	}
}

func formatInt(i int64) string {
	if i == 0 {
		return ""
	}
	return strconv.FormatInt(i, 10)
}
