package slices

import (
	"fmt"
	"github.com/ValentinKolb/stash/lib/state"
	"strconv"
)

const ActionCurrentUserReceive state.ActionType = "CURRENT_USER_RECEIVE"

// CurrentUser is the runtime state of the currentUser slice.
type CurrentUser struct {
	ID          int64  `mapstructure:"id"`
	Username    string `mapstructure:"username,omitempty"`
	DisplayName string `mapstructure:"display_name,omitempty"`
}

// UserID implements state.UserIdentifier. The zero id is the logged-out user.
func (u CurrentUser) UserID() string {
	if u.ID == 0 {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}

type currentUserSlice struct{}

// NewCurrentUser returns the currentUser slice.
func NewCurrentUser() state.Slice {
	return currentUserSlice{}
}

func (currentUserSlice) Name() string { return state.CurrentUserSlice }

func (currentUserSlice) Initial() any { return CurrentUser{} }

func (s currentUserSlice) Reduce(current any, action state.Action) any {
	if action.Type != ActionCurrentUserReceive {
		return current
	}
	var payload struct {
		User CurrentUser `mapstructure:"user"`
	}
	if err := decodePayload(action.Payload, &payload); err != nil {
		state.Logger.Warningf("ignoring malformed %s: %v", action.Type, err)
		return current
	}
	return payload.User
}

func (currentUserSlice) Serialize(current any) (any, error) {
	u, ok := current.(CurrentUser)
	if !ok {
		return nil, fmt.Errorf("currentUser: unexpected state %T", current)
	}
	return toMap(u)
}

func (currentUserSlice) Deserialize(raw any) (any, error) {
	var u CurrentUser
	if err := decodeStored(raw, &u); err != nil {
		return nil, fmt.Errorf("currentUser: %w", err)
	}
	return u, nil
}
