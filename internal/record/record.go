// Package record defines the generic tree-shaped value the converter operates
// on, plus the path and flattening helpers shared by the catalog, flattener,
// and reference-expansion stages.
//
// Design goals:
//
//   - Keep the dynamic JSON shape (map[string]any as produced by
//     encoding/json) at the edges and resolve typed extraction paths against
//     it at runtime, rejecting paths that don't resolve instead of guessing.
//   - No mutation of shared input: stages that rewrite a record work on a
//     Clone so the same record can safely appear again later in the stream.
package record

import (
	"sort"
	"strconv"
	"strings"
)

// Record is one nested JSON object representing a single domain entity
// (tweet, user, aggregate count, compliance event, list).
type Record map[string]any

// FromAny converts a decoded JSON value into a Record when it is an object.
func FromAny(v any) (Record, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// Unwrap extracts the logical records from one decoded JSON line.
//
// Three envelope shapes are accepted, mirroring raw API capture files:
//
//   - a bare object: the object itself is the record
//   - {"data": {...}}: the data member is the record
//   - {"data": [...]}: each object element of data is a record
//
// Non-object values (and non-object array elements) yield nothing; the
// caller decides how to count them.
func Unwrap(v any) []Record {
	root, ok := FromAny(v)
	if !ok {
		return nil
	}
	data, has := root["data"]
	if !has {
		return []Record{root}
	}
	switch d := data.(type) {
	case map[string]any:
		return []Record{Record(d)}
	case []any:
		out := make([]Record, 0, len(d))
		for _, elem := range d {
			if r, ok := FromAny(elem); ok {
				out = append(out, r)
			}
		}
		return out
	default:
		return nil
	}
}

// ID returns the record's primary identifier, if any. Identifiers are
// strings in the source data; numeric ids are stringified for robustness
// against re-encoded captures.
func (r Record) ID() (string, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Clone returns a deep copy of the record. Nested maps and slices are
// copied; scalar leaves are shared (they are immutable).
func (r Record) Clone() Record {
	return Record(cloneValue(map[string]any(r)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}

// Resolve walks a dotted extraction path into the record and returns the
// value it points at. Path segments are field names; a segment that parses
// as a non-negative integer indexes into a list. Resolve is total: it
// reports ok=false for any path that does not resolve, it never panics.
func (r Record) Resolve(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Flatten projects the record into a flat map keyed by dotted paths. Nested
// objects are descended into; lists (and scalars) stay whole as leaf values.
// An empty nested object contributes nothing.
func (r Record) Flatten() map[string]any {
	out := make(map[string]any, len(r))
	flattenInto(out, "", map[string]any(r))
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenInto(out, key, child)
			continue
		}
		out[key] = v
	}
}

// SortedKeys returns the keys of a flattened map in lexical order. Column
// discovery uses this so that newly seen columns are appended in a
// deterministic order regardless of Go's map iteration.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
