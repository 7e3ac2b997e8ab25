package types

import "strings"

// Record is a single row returned by a store. Nested objects are represented
// as map[string]any (or Record) values and addressed with dotted paths.
type Record map[string]any

// ID returns the identity value of the record
func (r Record) ID() any {
	return r[IDField]
}

// Lookup resolves a field name or dotted path against the record.
// A key containing dots is matched literally before the path is walked.
func (r Record) Lookup(path string) (any, bool) {
	if v, ok := r[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}

	var current any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		case Record:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}
