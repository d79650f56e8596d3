package serializer

import (
	"fmt"
	"github.com/ValentinKolb/stash/lib/state"
)

// IBlobSerializer is the interface for all blob serializers. A blob is the
// storage-safe tree written under one storage key.
type IBlobSerializer interface {
	// Serialize serializes a blob into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(blob state.Tree) ([]byte, error)
	// Deserialize deserializes a byte array into a blob
	// It returns the decoded blob and an error if any
	Deserialize(b []byte) (state.Tree, error)
}

// New returns the serializer registered under name (json, gob).
func New(name string) (IBlobSerializer, error) {
	switch name {
	case "json", "":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s (expected json or gob)", name)
	}
}
