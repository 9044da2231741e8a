package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeyDelimiter separates sections in a flattened key.
const KeyDelimiter = ":"

// Values is the flattened key/value accumulator. Keys are normalized to
// lower case so lookups are case-insensitive.
type Values map[string]string

// NormalizeKey returns the canonical form of a flattened key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Set stores value under key, replacing any earlier value.
func (v Values) Set(key, value string) {
	v[NormalizeKey(key)] = value
}

// Get returns the value stored under key.
func (v Values) Get(key string) (string, bool) {
	value, ok := v[NormalizeKey(key)]
	return value, ok
}

// Keys returns the keys in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, value := range v {
		out[k] = value
	}
	return out
}

// flatten writes a decoded JSON or YAML tree into v. Objects contribute
// one key segment per member, arrays one segment per index, and null
// becomes an empty string.
func (v Values) flatten(prefix string, node any) {
	switch n := node.(type) {
	case map[string]any:
		for k, child := range n {
			v.flatten(joinKey(prefix, k), child)
		}
	case map[any]any:
		for k, child := range n {
			v.flatten(joinKey(prefix, fmt.Sprint(k)), child)
		}
	case []any:
		for i, child := range n {
			v.flatten(joinKey(prefix, strconv.Itoa(i)), child)
		}
	case nil:
		if prefix != "" {
			v.Set(prefix, "")
		}
	case string:
		v.Set(prefix, n)
	case json.Number:
		v.Set(prefix, n.String())
	case bool:
		v.Set(prefix, strconv.FormatBool(n))
	default:
		v.Set(prefix, fmt.Sprint(n))
	}
}

// joinKey appends a segment to a flattened key.
func joinKey(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + KeyDelimiter + segment
}

// tree expands the flattened values into nested maps. A map whose keys
// are all array indexes becomes a slice, so "routes:0:key" binds to a
// slice of routes.
func (v Values) tree() map[string]any {
	root := make(map[string]any)
	for _, key := range v.Keys() {
		segments := strings.Split(key, KeyDelimiter)
		node := root
		for i, segment := range segments {
			if i == len(segments)-1 {
				if _, isSection := node[segment].(map[string]any); !isSection {
					node[segment] = v[key]
				}
				break
			}
			child, ok := node[segment].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[segment] = child
			}
			node = child
		}
	}
	for k, child := range root {
		root[k] = toSlices(child)
	}
	return root
}

// toSlices converts index-keyed maps into slices, recursively.
func toSlices(node any) any {
	m, ok := node.(map[string]any)
	if !ok {
		return node
	}

	for k, child := range m {
		m[k] = toSlices(child)
	}

	if len(m) == 0 {
		return m
	}

	indexes := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return m
		}
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]any, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, m[strconv.Itoa(i)])
	}
	return out
}
