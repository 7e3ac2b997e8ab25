// Package filter defines the filter expression tree: a boolean tree of
// AND/OR/NOT over leaf field comparisons. It is the intermediate form between
// parsed query text and a store's native query facility.
//
// Trees are immutable. Nodes are built bottom-up with the constructors in this
// package and expose their contents only through accessors that return copies,
// so a subtree can be shared freely between several enclosing trees.
package filter

import "slices"

// Operator is the comparison performed by a Predicate
type Operator string

const (
	OpEq       Operator = "EQ"
	OpNe       Operator = "NE"
	OpLt       Operator = "LT"
	OpLte      Operator = "LTE"
	OpGt       Operator = "GT"
	OpGte      Operator = "GTE"
	OpIn       Operator = "IN"
	OpContains Operator = "CONTAINS"
	OpLike     Operator = "LIKE"
	OpFulltext Operator = "FULLTEXT"
)

// Valid reports whether op is one of the known operators
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpContains, OpLike, OpFulltext:
		return true
	}
	return false
}

// Node is a filter expression tree node. The set of implementations is closed:
// *AndNode, *OrNode, *NotNode and *Predicate.
type Node interface {
	String() string
	node()
}

// AndNode matches when every child matches
type AndNode struct {
	children []Node
}

// OrNode matches when at least one child matches
type OrNode struct {
	children []Node
}

// NotNode matches when its child does not
type NotNode struct {
	child Node
}

// Predicate is a leaf comparison of a field against one value, or against a
// list of values for multi-valued IN and CONTAINS
type Predicate struct {
	field  string
	op     Operator
	value  any
	values []any
	multi  bool
}

func (*AndNode) node()   {}
func (*OrNode) node()    {}
func (*NotNode) node()   {}
func (*Predicate) node() {}

// And builds a conjunction. Nil children are dropped; no collapsing is done.
func And(children ...Node) *AndNode {
	return &AndNode{children: compact(children)}
}

// Or builds a disjunction. Nil children are dropped; no collapsing is done.
func Or(children ...Node) *OrNode {
	return &OrNode{children: compact(children)}
}

// Not negates child
func Not(child Node) *NotNode {
	return &NotNode{child: child}
}

// AllOf folds nodes into a conjunction: nil nodes are dropped, a single
// remaining node is returned as is and no nodes yield nil.
func AllOf(nodes ...Node) Node {
	nodes = compact(nodes)
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	default:
		return &AndNode{children: nodes}
	}
}

// AnyOf folds nodes into a disjunction with the same rules as AllOf
func AnyOf(nodes ...Node) Node {
	nodes = compact(nodes)
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	default:
		return &OrNode{children: nodes}
	}
}

func compact(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Children returns a copy of the conjuncts
func (n *AndNode) Children() []Node { return slices.Clone(n.children) }

// Len returns the number of conjuncts
func (n *AndNode) Len() int { return len(n.children) }

// Children returns a copy of the disjuncts
func (n *OrNode) Children() []Node { return slices.Clone(n.children) }

// Len returns the number of disjuncts
func (n *OrNode) Len() int { return len(n.children) }

// Child returns the negated node
func (n *NotNode) Child() Node { return n.child }

// NewPredicate builds a single-value comparison
func NewPredicate(field string, op Operator, value any) *Predicate {
	return &Predicate{field: field, op: op, value: value}
}

// NewMultiPredicate builds a comparison against a list of values
func NewMultiPredicate(field string, op Operator, values []any) *Predicate {
	return &Predicate{field: field, op: op, values: slices.Clone(values), multi: true}
}

func Eq(field string, value any) *Predicate  { return NewPredicate(field, OpEq, value) }
func Ne(field string, value any) *Predicate  { return NewPredicate(field, OpNe, value) }
func Lt(field string, value any) *Predicate  { return NewPredicate(field, OpLt, value) }
func Lte(field string, value any) *Predicate { return NewPredicate(field, OpLte, value) }
func Gt(field string, value any) *Predicate  { return NewPredicate(field, OpGt, value) }
func Gte(field string, value any) *Predicate { return NewPredicate(field, OpGte, value) }

// In matches when the field equals any of values
func In(field string, values ...any) *Predicate { return NewMultiPredicate(field, OpIn, values) }

// Contains matches array fields holding value
func Contains(field string, value any) *Predicate { return NewPredicate(field, OpContains, value) }

// ContainsAll matches array fields holding every one of values
func ContainsAll(field string, values ...any) *Predicate {
	return NewMultiPredicate(field, OpContains, values)
}

// Like matches text against a pattern where % is any run and _ any single character
func Like(field, pattern string) *Predicate { return NewPredicate(field, OpLike, pattern) }

// Fulltext matches text containing every word of text
func Fulltext(field, text string) *Predicate { return NewPredicate(field, OpFulltext, text) }

// Field returns the store path the predicate compares
func (p *Predicate) Field() string { return p.field }

// Operator returns the comparison operator
func (p *Predicate) Operator() Operator { return p.op }

// Value returns the single comparison value; nil for multi-valued predicates
func (p *Predicate) Value() any { return p.value }

// Values returns a copy of the value list. Single-valued predicates return a
// one-element list.
func (p *Predicate) Values() []any {
	if !p.multi {
		return []any{p.value}
	}
	return slices.Clone(p.values)
}

// IsMulti reports whether the predicate was built from a value list
func (p *Predicate) IsMulti() bool { return p.multi }

// WithField returns a copy of the predicate addressing another field
func (p *Predicate) WithField(field string) *Predicate {
	cp := *p
	cp.field = field
	cp.values = slices.Clone(p.values)
	return &cp
}

// Walk calls fn for n and, while fn returns true, for every descendant in
// depth-first order
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch t := n.(type) {
	case *AndNode:
		for _, c := range t.children {
			Walk(c, fn)
		}
	case *OrNode:
		for _, c := range t.children {
			Walk(c, fn)
		}
	case *NotNode:
		Walk(t.child, fn)
	}
}

// Fields returns the distinct store paths referenced by predicates under n,
// in first-seen order
func Fields(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(n, func(node Node) bool {
		if p, ok := node.(*Predicate); ok && !seen[p.field] {
			seen[p.field] = true
			out = append(out, p.field)
		}
		return true
	})
	return out
}
