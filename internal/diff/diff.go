// Package diff computes structural differences between JSON-like values
// (map[string]any, []any and scalars).
//
// A difference is reported as a path/value/previous triple. Paths join map
// keys and slice indexes with '.', e.g. "user.tags.1". The root is "".
package diff

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Op classifies a Change.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpChange Op = "change"
)

// Change is one structural difference.
type Change struct {
	Path     string `json:"path"`
	Op       Op     `json:"op"`
	Value    any    `json:"value,omitempty"`
	Previous any    `json:"previous,omitempty"`
}

// Compare returns the changes turning prev into next. Map keys are visited
// in sorted order and slice indexes ascending, so the result is
// deterministic. Added or removed subtrees are reported once, at their root.
func Compare(prev, next any) []Change {
	var out []Change
	compare("", prev, next, &out)
	return out
}

func compare(path string, prev, next any, out *[]Change) {
	pm, pIsMap := prev.(map[string]any)
	nm, nIsMap := next.(map[string]any)
	if pIsMap && nIsMap {
		compareMaps(path, pm, nm, out)
		return
	}

	ps, pIsSlice := prev.([]any)
	ns, nIsSlice := next.([]any)
	if pIsSlice && nIsSlice {
		compareSlices(path, ps, ns, out)
		return
	}

	if !reflect.DeepEqual(prev, next) {
		*out = append(*out, Change{Path: path, Op: OpChange, Value: next, Previous: prev})
	}
}

func compareMaps(path string, prev, next map[string]any, out *[]Change) {
	keys := slices.Collect(maps.Keys(prev))
	for k := range next {
		if _, ok := prev[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		p, inPrev := prev[k]
		n, inNext := next[k]
		child := join(path, k)
		switch {
		case !inPrev:
			*out = append(*out, Change{Path: child, Op: OpAdd, Value: n})
		case !inNext:
			*out = append(*out, Change{Path: child, Op: OpRemove, Previous: p})
		default:
			compare(child, p, n, out)
		}
	}
}

func compareSlices(path string, prev, next []any, out *[]Change) {
	for i := 0; i < max(len(prev), len(next)); i++ {
		child := join(path, strconv.Itoa(i))
		switch {
		case i >= len(prev):
			*out = append(*out, Change{Path: child, Op: OpAdd, Value: next[i]})
		case i >= len(next):
			*out = append(*out, Change{Path: child, Op: OpRemove, Previous: prev[i]})
		default:
			compare(child, prev[i], next[i], out)
		}
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Clone deep-copies the maps and slices in v. Other values are shared.
func Clone(v any) any {
	switch c := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(c))
		for k, e := range c {
			m[k] = Clone(e)
		}
		return m
	case []any:
		s := make([]any, len(c))
		for i, e := range c {
			s[i] = Clone(e)
		}
		return s
	default:
		return v
	}
}

// SetPath returns a copy of obj with value stored at path. Containers along
// the path are copied, never mutated; missing map levels are created.
func SetPath(obj map[string]any, path string, value any) (map[string]any, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	out, err := setIn(obj, strings.Split(path, "."), value)
	if err != nil {
		return nil, fmt.Errorf("set %q: %w", path, err)
	}
	return out.(map[string]any), nil
}

func setIn(container any, segs []string, value any) (any, error) {
	seg := segs[0]
	switch c := container.(type) {
	case nil:
		m := map[string]any{}
		return setIn(m, segs, value)
	case map[string]any:
		m := maps.Clone(c)
		if len(segs) == 1 {
			m[seg] = value
			return m, nil
		}
		child, err := setIn(m[seg], segs[1:], value)
		if err != nil {
			return nil, err
		}
		m[seg] = child
		return m, nil
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(c) {
			return nil, fmt.Errorf("index %q out of range", seg)
		}
		s := slices.Clone(c)
		if len(segs) == 1 {
			s[i] = value
			return s, nil
		}
		child, err := setIn(s[i], segs[1:], value)
		if err != nil {
			return nil, err
		}
		s[i] = child
		return s, nil
	default:
		return nil, fmt.Errorf("segment %q: cannot descend into %T", seg, container)
	}
}
