package persist

import (
	"github.com/ValentinKolb/stash/lib/state"
)

// Result is a serialized state tree split by storage key.
type Result struct {
	// Main is stored under the primary key
	Main state.Tree
	// Keys holds sub-key -> tree stored under "<primary key>:<sub-key>"
	Keys map[string]state.Tree
}

// Serialize runs the SERIALIZE lifecycle action and moves every slice with a
// storage sub-key out of the main tree.
func Serialize(reducer *state.Reducer, tree state.Tree) Result {
	main := reducer.Reduce(tree, state.Action{Type: state.ActionSerialize})
	result := Result{Main: main, Keys: map[string]state.Tree{}}

	for name, subKey := range reducer.SubKeys() {
		value, ok := main[name]
		if !ok {
			continue
		}
		delete(main, name)
		if result.Keys[subKey] == nil {
			result.Keys[subKey] = state.Tree{}
		}
		result.Keys[subKey][name] = value
	}
	return result
}

// Deserialize strips the timestamp of a blob and runs the DESERIALIZE
// lifecycle action. The blob itself is not modified.
func Deserialize(reducer *state.Reducer, blob state.Tree) state.Tree {
	stripped := make(state.Tree, len(blob))
	for k, v := range blob {
		if k != TimestampField {
			stripped[k] = v
		}
	}
	return reducer.Reduce(stripped, state.Action{Type: state.ActionDeserialize})
}

// Pick returns the entries of tree whose keys are in names.
func Pick(tree state.Tree, names []string) state.Tree {
	out := make(state.Tree, len(names))
	for _, name := range names {
		if v, ok := tree[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Merge returns a new tree with the top-level entries of every layer, later
// layers taking precedence.
func Merge(layers ...state.Tree) state.Tree {
	out := state.Tree{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// stamp returns a copy of tree carrying the write timestamp
func stamp(tree state.Tree, ts int64) state.Tree {
	out := make(state.Tree, len(tree)+1)
	for k, v := range tree {
		out[k] = v
	}
	out[TimestampField] = ts
	return out
}

// subKeySlices returns sub-key -> slice names stored under it
func subKeySlices(reducer *state.Reducer) map[string][]string {
	out := make(map[string][]string)
	for name, subKey := range reducer.SubKeys() {
		out[subKey] = append(out[subKey], name)
	}
	return out
}
