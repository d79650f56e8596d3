package state

import "fmt"

// combinedSlice nests slices under one name, like Reducer does for the root.
// Its runtime state is a map[string]any keyed by child name.
type combinedSlice struct {
	name     string
	children []Slice
	subKey   string
}

// Combine builds a slice whose state is the map of its children's states.
// Serialize and Deserialize recurse into the children, so transient and
// Persistable children keep their behaviour when nested.
func Combine(name string, children ...Slice) Slice {
	return &combinedSlice{name: name, children: children}
}

// WithStorageSubKey wraps a top-level slice so that it is stored under its
// own storage sub-key.
func WithStorageSubKey(subKey string, s Slice) Slice {
	if c, ok := s.(*combinedSlice); ok {
		copied := *c
		copied.subKey = subKey
		return &copied
	}
	return &subKeyedSlice{Slice: s, subKey: subKey}
}

// --------------------------------------------------------------------------
// Slice Methods
// --------------------------------------------------------------------------

func (c *combinedSlice) Name() string { return c.name }

func (c *combinedSlice) Initial() any {
	m := make(map[string]any, len(c.children))
	for _, child := range c.children {
		m[child.Name()] = child.Initial()
	}
	return m
}

func (c *combinedSlice) Reduce(state any, action Action) any {
	current, ok := state.(map[string]any)
	changed := !ok
	if !ok {
		current = c.Initial().(map[string]any)
	}
	next := make(map[string]any, len(c.children))
	for _, child := range c.children {
		value, ok := current[child.Name()]
		if !ok {
			value = child.Initial()
			changed = true
		}
		reduced := child.Reduce(value, action)
		if !sameValue(reduced, value) {
			changed = true
		}
		next[child.Name()] = reduced
	}
	if !changed && len(current) == len(c.children) {
		return state
	}
	return next
}

func (c *combinedSlice) Serialize(state any) (any, error) {
	current, ok := state.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected map state, got %T", c.name, state)
	}
	out := make(map[string]any, len(c.children))
	for _, child := range c.children {
		if isTransient(child) {
			continue
		}
		value, ok := current[child.Name()]
		if !ok {
			value = child.Initial()
		}
		serialized, err := serializeSlice(child, value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", c.name, child.Name(), err)
		}
		out[child.Name()] = serialized
	}
	return out, nil
}

// Deserialize never fails for malformed children; each child falls back to
// its own initial state. Only a raw value that is not a map is an error.
func (c *combinedSlice) Deserialize(raw any) (any, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, fmt.Errorf("%s: expected map, got %T", c.name, raw)
	}
	out := make(map[string]any, len(c.children))
	for _, child := range c.children {
		value, present := m[child.Name()]
		out[child.Name()] = deserializeSlice(child, value, present)
	}
	return out, nil
}

func (c *combinedSlice) StorageSubKey() string { return c.subKey }

// --------------------------------------------------------------------------
// Sub-key wrapper
// --------------------------------------------------------------------------

type subKeyedSlice struct {
	Slice
	subKey string
}

func (s *subKeyedSlice) StorageSubKey() string { return s.subKey }

func (s *subKeyedSlice) Serialize(state any) (any, error) {
	return serializeSlice(s.Slice, state)
}

func (s *subKeyedSlice) Deserialize(raw any) (any, error) {
	p, ok := s.Slice.(Persistable)
	if !ok {
		return raw, nil
	}
	return p.Deserialize(raw)
}

func (s *subKeyedSlice) Transient() bool {
	return isTransient(s.Slice)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// asMap accepts the map shapes produced by the supported decoders
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Tree:
		return m, true
	default:
		return nil, false
	}
}
