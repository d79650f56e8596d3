package persist

import (
	"encoding/json"
	"testing"

	"github.com/ValentinKolb/stash/lib/state"
	"github.com/ValentinKolb/stash/lib/state/slices"
)

func TestStorageKey(t *testing.T) {
	tests := []struct {
		userID string
		want   string
	}{
		{"", "redux-state-logged-out"},
		{"42", "redux-state-42"},
		{"abc", "redux-state-abc"},
	}
	for _, tc := range tests {
		if got := StorageKey(tc.userID); got != tc.want {
			t.Errorf("StorageKey(%q) = %q, want %q", tc.userID, got, tc.want)
		}
	}
}

func TestSubKey(t *testing.T) {
	if got := SubKey("redux-state-42", "preferences"); got != "redux-state-42:preferences" {
		t.Errorf("unexpected sub key %q", got)
	}
	if got := SubKey("redux-state-42", ""); got != "redux-state-42" {
		t.Errorf("empty sub key must return the key, got %q", got)
	}
}

func TestNormalizeUserID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "42", "42"},
		{"string zero", "0", ""},
		{"string padded", " 7 ", "7"},
		{"int", 42, "42"},
		{"int zero", 0, ""},
		{"int64", int64(9007199254740993), "9007199254740993"},
		{"uint64", uint64(5), "5"},
		{"float integral", float64(42), "42"},
		{"float zero", float64(0), ""},
		{"float fraction", 4.2, ""},
		{"json number", json.Number("17"), "17"},
		{"bool", true, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeUserID(tc.in); got != tc.want {
				t.Errorf("NormalizeUserID(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestUserIDFromTree(t *testing.T) {
	tests := []struct {
		name string
		tree state.Tree
		want string
	}{
		{"no user slice", state.Tree{}, ""},
		{"nil user", state.Tree{"currentUser": nil}, ""},
		{"runtime user", state.Tree{"currentUser": slices.CurrentUser{ID: 42}}, "42"},
		{"runtime logged out", state.Tree{"currentUser": slices.CurrentUser{}}, ""},
		{"decoded json", state.Tree{"currentUser": map[string]any{"id": float64(42)}}, "42"},
		{"map without id", state.Tree{"currentUser": map[string]any{"username": "ann"}}, ""},
		{"unexpected type", state.Tree{"currentUser": "42"}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserIDFromTree(tc.tree); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
