// Package tree holds the generic property-tree document used for every
// resource instance: nested maps of scalars, sequences and sub-trees.
package tree

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
)

// Tree is a property tree as decoded from JSON. Nested mappings are Tree or
// map[string]any, sequences are []any.
type Tree map[string]any

// FromJSON decodes a JSON object into a Tree.
func FromJSON(data []byte) (Tree, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return Normalize(t), nil
}

// Normalize converts any nested map[string]any into Tree so type switches
// only need one mapping case.
func Normalize(t Tree) Tree {
	if t == nil {
		return nil
	}
	for k, v := range t {
		t[k] = normalizeValue(v)
	}
	return t
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Normalize(Tree(val))
	case Tree:
		return Normalize(val)
	case []any:
		for i := range val {
			val[i] = normalizeValue(val[i])
		}
		return val
	default:
		return v
	}
}

// AsTree returns v as a Tree when it is a mapping.
func AsTree(v any) (Tree, bool) {
	switch val := v.(type) {
	case Tree:
		return val, true
	case map[string]any:
		return Tree(val), true
	}
	return nil, false
}

// Keys returns the keys in sorted order.
func (t Tree) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for k, v := range t {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Tree:
		return val.Clone()
	case map[string]any:
		return Tree(val).Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Get walks a key path and returns the value found there.
func (t Tree) Get(path ...string) (any, bool) {
	var cur any = t
	for _, key := range path {
		m, ok := AsTree(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the string at path, or "".
func (t Tree) GetString(path ...string) string {
	v, _ := t.Get(path...)
	s, _ := v.(string)
	return s
}

// GetBool returns the bool at path and whether it was present.
func (t Tree) GetBool(path ...string) (bool, bool) {
	v, ok := t.Get(path...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Set stores v at path, creating intermediate trees.
func (t Tree) Set(v any, path ...string) {
	if len(path) == 0 {
		return
	}
	cur := t
	for _, key := range path[:len(path)-1] {
		next, ok := AsTree(cur[key])
		if !ok {
			next = Tree{}
			cur[key] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = v
}

// Delete removes the value at path and any parents left empty by it.
func (t Tree) Delete(path ...string) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		delete(t, path[0])
		return
	}
	child, ok := AsTree(t[path[0]])
	if !ok {
		return
	}
	child.Delete(path[1:]...)
	if len(child) == 0 {
		delete(t, path[0])
	}
}

// Overlay merges patch onto a copy of base, recursing into mappings.
func Overlay(base, patch Tree) Tree {
	out := base.Clone()
	if out == nil {
		out = Tree{}
	}
	for k, pv := range patch {
		if pt, ok := AsTree(pv); ok {
			if bt, ok := AsTree(out[k]); ok {
				out[k] = Overlay(bt, pt)
				continue
			}
		}
		out[k] = cloneValue(pv)
	}
	return out
}

// Equal reports structural equality. Numbers compare by value regardless of
// their Go type.
func Equal(a, b any) bool {
	if an, ok := number(a); ok {
		bn, ok := number(b)
		return ok && an == bn
	}
	if at, ok := AsTree(a); ok {
		bt, ok := AsTree(b)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, av := range at {
			bv, ok := bt[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	if as, ok := a.([]any); ok {
		bs, ok := b.([]any)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !Equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	}
	return 0, false
}
