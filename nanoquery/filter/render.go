package filter

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

func (n *AndNode) String() string { return renderGroup("AND", n.children) }
func (n *OrNode) String() string  { return renderGroup("OR", n.children) }
func (n *NotNode) String() string { return "NOT(" + render(n.child) + ")" }

func (p *Predicate) String() string {
	var sb strings.Builder
	sb.WriteString(string(p.op))
	sb.WriteByte('(')
	sb.WriteString(p.field)
	sb.WriteString(", ")
	if p.multi {
		sb.WriteByte('[')
		for i, v := range p.values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(FormatValue(v))
		}
		sb.WriteByte(']')
	} else {
		sb.WriteString(FormatValue(p.value))
	}
	sb.WriteByte(')')
	return sb.String()
}

func renderGroup(name string, children []Node) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = render(c)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func render(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

// FormatValue renders a comparison value deterministically
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *big.Int:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Equal reports whether two trees are structurally identical
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *AndNode:
		y, ok := b.(*AndNode)
		return ok && equalChildren(x.children, y.children)
	case *OrNode:
		y, ok := b.(*OrNode)
		return ok && equalChildren(x.children, y.children)
	case *NotNode:
		y, ok := b.(*NotNode)
		return ok && Equal(x.child, y.child)
	case *Predicate:
		y, ok := b.(*Predicate)
		if !ok || x.field != y.field || x.op != y.op || x.multi != y.multi {
			return false
		}
		if !x.multi {
			return sameValue(x.value, y.value)
		}
		if len(x.values) != len(y.values) {
			return false
		}
		for i := range x.values {
			if !sameValue(x.values[i], y.values[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func equalChildren(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sameValue is strict: values of different Go types are never the same
func sameValue(a, b any) bool {
	switch x := a.(type) {
	case *big.Int:
		y, ok := b.(*big.Int)
		return ok && x.Cmp(y) == 0
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}
