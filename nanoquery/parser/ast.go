package parser

// Query is the root of a parse tree. Or is nil for blank query text.
type Query struct {
	Or *OrQuery
}

// Empty reports whether the query has no terms
func (q *Query) Empty() bool {
	return q == nil || q.Or == nil
}

// OrQuery is a disjunction of conjunctions
type OrQuery struct {
	Ands []*AndQuery
}

// AndQuery is a conjunction of atoms; adjacency and the AND keyword both join atoms
type AndQuery struct {
	Atoms []Atom
}

// Atom is one of *SubQuery, *NotQuery, *EqualFieldTerm, *OtherFieldTerm or
// *GlobalTerm
type Atom interface {
	// Pos is the byte offset where the atom starts
	Pos() int
	atom()
}

// SubQuery is a parenthesised query
type SubQuery struct {
	Open  Token
	Query *Query
}

// NotQuery negates an atom with NOT or a leading '-'
type NotQuery struct {
	Op   Token
	Atom Atom
}

// EqualFieldTerm is field:value or field:v1,v2,...
type EqualFieldTerm struct {
	Field  Token
	Values []Token
}

// OtherFieldTerm is field<value, field<=value, field>value or field>=value
type OtherFieldTerm struct {
	Field Token
	Op    Token
	Value Token
}

// GlobalTerm is a value not bound to any field
type GlobalTerm struct {
	Value Token
}

func (q *SubQuery) Pos() int       { return q.Open.Pos }
func (q *NotQuery) Pos() int       { return q.Op.Pos }
func (t *EqualFieldTerm) Pos() int { return t.Field.Pos }
func (t *OtherFieldTerm) Pos() int { return t.Field.Pos }
func (t *GlobalTerm) Pos() int     { return t.Value.Pos }

func (*SubQuery) atom()       {}
func (*NotQuery) atom()       {}
func (*EqualFieldTerm) atom() {}
func (*OtherFieldTerm) atom() {}
func (*GlobalTerm) atom()     {}
