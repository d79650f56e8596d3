package serializer

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/stash/lib/state"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IBlobSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IBlobSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IBlobSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(blob state.Tree) ([]byte, error) {
	return json.Marshal(blob)
}

func (j jsonSerializerImpl) Deserialize(b []byte) (state.Tree, error) {
	var blob state.Tree
	if err := json.Unmarshal(b, &blob); err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("blob is not an object")
	}
	return blob, nil
}
