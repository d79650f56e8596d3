package slices

import (
	"github.com/ValentinKolb/stash/lib/state"
)

const (
	ActionPreferencesSet   state.ActionType = "PREFERENCES_SET"
	ActionPreferencesReset state.ActionType = "PREFERENCES_RESET"

	// PreferencesSubKey is the storage sub-key of the preferences slice
	PreferencesSubKey = "preferences"
)

type preferencesSlice struct{}

// NewPreferences returns the preferences slice: a flat map of user
// preferences stored under its own storage sub-key. It uses the default
// identity serialization.
func NewPreferences() state.Slice {
	return state.WithStorageSubKey(PreferencesSubKey, preferencesSlice{})
}

func (preferencesSlice) Name() string { return "preferences" }

func (preferencesSlice) Initial() any { return map[string]any{} }

func (preferencesSlice) Reduce(current any, action state.Action) any {
	switch action.Type {
	case ActionPreferencesSet:
		var payload struct {
			Key   string `mapstructure:"key"`
			Value any    `mapstructure:"value"`
		}
		if err := decodePayload(action.Payload, &payload); err != nil || payload.Key == "" {
			state.Logger.Warningf("ignoring malformed %s", action.Type)
			return current
		}
		prev, _ := current.(map[string]any)
		next := make(map[string]any, len(prev)+1)
		for k, v := range prev {
			next[k] = v
		}
		next[payload.Key] = payload.Value
		return next
	case ActionPreferencesReset:
		return map[string]any{}
	}
	return current
}
