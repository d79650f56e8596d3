package slices

import (
	"github.com/go-viper/mapstructure/v2"
)

// decodePayload decodes an action payload. Payloads come from JSON or YAML
// so scalar types are converted loosely (e.g. a numeric site id to a string).
func decodePayload(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// decodeStored decodes persisted slice data. Unknown fields are rejected so
// that data written in an older shape falls back to the initial state.
func decodeStored(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// toMap converts a tagged struct into a plain map for storage.
func toMap(in any) (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(in, &out); err != nil {
		return nil, err
	}
	return out, nil
}
