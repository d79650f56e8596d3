package state

import "fmt"

// --------------------------------------------------------------------------
// Core Types
// --------------------------------------------------------------------------

// Tree is the application state: slice name -> slice state.
// Trees handed out by the Store are shared and must be treated as read-only.
type Tree map[string]any

// ActionType names an action
type ActionType string

const (
	// ActionSerialize asks every slice for its storage-safe representation
	ActionSerialize ActionType = "SERIALIZE"
	// ActionDeserialize asks every slice to rebuild its runtime representation
	ActionDeserialize ActionType = "DESERIALIZE"
)

// IsLifecycle reports whether t is one of the persistence lifecycle signals
func (t ActionType) IsLifecycle() bool {
	return t == ActionSerialize || t == ActionDeserialize
}

// Action is a domain event dispatched to the store.
type Action struct {
	Type    ActionType     `json:"type" yaml:"type"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

func (a Action) String() string {
	return fmt.Sprintf("Action{Type: %s}", a.Type)
}

// --------------------------------------------------------------------------
// Slice Interfaces
// --------------------------------------------------------------------------

// Slice is an independently reduced subtree of the state.
// Reduce must not mutate state; it returns the same value when nothing changed.
type Slice interface {
	// Name is the key of the slice in its parent tree
	Name() string
	// Initial returns a fresh default state
	Initial() any
	// Reduce applies a domain action
	Reduce(state any, action Action) any
}

// Persistable is implemented by slices whose runtime representation differs
// from what is written to storage. Slices without it are stored as-is.
type Persistable interface {
	// Serialize converts the runtime state into plain maps, slices and scalars
	Serialize(state any) (any, error)
	// Deserialize rebuilds the runtime state; an error makes the slice fall back to Initial
	Deserialize(raw any) (any, error)
}

// SubKeyed is implemented by top-level slices that are stored under their own
// storage sub-key instead of inside the main blob.
type SubKeyed interface {
	StorageSubKey() string
}

// Transient is implemented by slices that are never persisted. They are
// omitted on serialize and always start from Initial on deserialize.
type Transient interface {
	Transient() bool
}

// UserIdentifier is implemented by runtime values of the currentUser slice so
// that the user id can be read without knowing the concrete type.
type UserIdentifier interface {
	UserID() string
}

// isTransient reports whether s opted out of persistence
func isTransient(s Slice) bool {
	t, ok := s.(Transient)
	return ok && t.Transient()
}
