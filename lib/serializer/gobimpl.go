package serializer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"github.com/ValentinKolb/stash/lib/state"
)

func init() {
	// concrete types that may appear behind interface values in a blob
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(state.Tree{})
	gob.Register([]string{})
}

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IBlobSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IBlobSerializer interface using gob encoding
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IBlobSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(blob state.Tree) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(map[string]any(blob)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte) (state.Tree, error) {
	var blob map[string]any
	dec := gob.NewDecoder(bytes.NewBuffer(b))
	if err := dec.Decode(&blob); err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("blob is empty")
	}
	return state.Tree(blob), nil
}
