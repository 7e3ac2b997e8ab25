package filter

import (
	"fmt"
	"reflect"
	"strings"
)

// Getter resolves a store path against a record
type Getter func(path string) (any, bool)

// Match evaluates the tree against a record. A nil tree matches everything.
// A missing field behaves as null: it equals nil, is unequal to everything
// else and never satisfies a relational, LIKE, CONTAINS or FULLTEXT test.
func Match(n Node, get Getter) bool {
	switch t := n.(type) {
	case nil:
		return true
	case *AndNode:
		for _, c := range t.children {
			if !Match(c, get) {
				return false
			}
		}
		return true
	case *OrNode:
		for _, c := range t.children {
			if Match(c, get) {
				return true
			}
		}
		return false
	case *NotNode:
		return !Match(t.child, get)
	case *Predicate:
		return matchPredicate(t, get)
	}
	return false
}

func matchPredicate(p *Predicate, get Getter) bool {
	v, ok := get(p.field)
	if !ok {
		v = nil
	}

	switch p.op {
	case OpEq:
		return ValuesEqual(v, p.value)
	case OpNe:
		return !ValuesEqual(v, p.value)
	case OpLt, OpLte, OpGt, OpGte:
		c, ok := Compare(v, p.value)
		if !ok {
			return false
		}
		switch p.op {
		case OpLt:
			return c < 0
		case OpLte:
			return c <= 0
		case OpGt:
			return c > 0
		default:
			return c >= 0
		}
	case OpIn:
		for _, want := range p.values {
			if ValuesEqual(v, want) {
				return true
			}
		}
		return false
	case OpContains:
		elems, ok := toSlice(v)
		if !ok {
			return false
		}
		for _, want := range p.Values() {
			if !containsValue(elems, want) {
				return false
			}
		}
		return true
	case OpLike:
		s, ok := v.(string)
		if !ok {
			return false
		}
		pattern, _ := p.value.(string)
		return likeMatch(strings.ToLower(pattern), strings.ToLower(s))
	case OpFulltext:
		text, ok := textOf(v)
		if !ok {
			return false
		}
		text = strings.ToLower(text)
		for _, word := range strings.Fields(strings.ToLower(fmt.Sprint(p.value))) {
			if !strings.Contains(text, word) {
				return false
			}
		}
		return true
	}
	return false
}

func containsValue(elems []any, want any) bool {
	for _, e := range elems {
		if ValuesEqual(e, want) {
			return true
		}
	}
	return false
}

func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if _, isBytes := v.([]byte); isBytes {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func textOf(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	}
	if elems, ok := toSlice(v); ok {
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, " "), true
	}
	return fmt.Sprint(v), true
}

// likeMatch implements SQL LIKE: % matches any run of characters, _ exactly one
func likeMatch(pattern, s string) bool {
	p, t := []rune(pattern), []rune(s)
	pi, ti := 0, 0
	star, mark := -1, 0
	for ti < len(t) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == t[ti]):
			pi++
			ti++
		case pi < len(p) && p[pi] == '%':
			star = pi
			mark = ti
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			ti = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
