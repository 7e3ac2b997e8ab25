// Package query turns parsed query text and request arguments into filter
// trees, resolving every field reference against a schema.
package query

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/nanoquery/internal/logging"
	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/parser"
	"github.com/arthur-debert/nanoquery/types"
)

// wildcard marks a prefix or suffix match in a scoped string value
const wildcard = "*"

// Options controls how query text is turned into a filter
type Options struct {
	// Strict surfaces syntax errors instead of treating malformed text as no filter
	Strict bool

	// Logger overrides the package logger
	Logger *zerolog.Logger
}

func (o Options) logger() zerolog.Logger {
	if o.Logger != nil {
		return *o.Logger
	}
	return logging.GetLogger("query")
}

// Parse parses text and visits the result against schema. Blank text yields a
// nil filter. Malformed text also yields a nil filter unless opts.Strict is
// set; unknown fields are always an error.
func Parse(text string, schema *types.Schema, opts Options) (filter.Node, error) {
	log := opts.logger()

	tree, err := parser.Parse(text)
	if err != nil {
		if opts.Strict || !errors.Is(err, parser.ErrSyntax) {
			return nil, err
		}
		log.Debug().Err(err).Str("query", text).Msg("ignoring malformed query text")
		return nil, nil
	}

	v := &visitor{schema: schema, log: log}
	return v.query(tree)
}

// Visit builds the filter tree for a parse tree
func Visit(tree *parser.Query, schema *types.Schema) (filter.Node, error) {
	v := &visitor{schema: schema, log: logging.GetLogger("query")}
	return v.query(tree)
}

type visitor struct {
	schema *types.Schema
	log    zerolog.Logger
}

func (v *visitor) query(q *parser.Query) (filter.Node, error) {
	if q.Empty() {
		return nil, nil
	}
	return v.or(q.Or)
}

func (v *visitor) or(q *parser.OrQuery) (filter.Node, error) {
	nodes := make([]filter.Node, 0, len(q.Ands))
	for _, and := range q.Ands {
		n, err := v.and(and)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return filter.AnyOf(nodes...), nil
}

func (v *visitor) and(q *parser.AndQuery) (filter.Node, error) {
	nodes := make([]filter.Node, 0, len(q.Atoms))
	for _, atom := range q.Atoms {
		n, err := v.atom(atom)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return filter.AllOf(nodes...), nil
}

func (v *visitor) atom(a parser.Atom) (filter.Node, error) {
	switch a := a.(type) {
	case *parser.SubQuery:
		return v.query(a.Query)
	case *parser.NotQuery:
		return v.not(a)
	case *parser.EqualFieldTerm:
		return v.equalTerm(a)
	case *parser.OtherFieldTerm:
		return v.otherTerm(a)
	case *parser.GlobalTerm:
		return v.globalTerm(a), nil
	}
	return nil, &parser.SyntaxError{Pos: a.Pos(), Msg: "unsupported query element"}
}

// not always wraps a compound node so consumers can rely on NOT holding AND, OR or NOT
func (v *visitor) not(q *parser.NotQuery) (filter.Node, error) {
	child, err := v.atom(q.Atom)
	if err != nil || child == nil {
		return nil, err
	}
	switch child.(type) {
	case *filter.AndNode, *filter.OrNode, *filter.NotNode:
		return filter.Not(child), nil
	default:
		return filter.Not(filter.And(child)), nil
	}
}

func (v *visitor) equalTerm(t *parser.EqualFieldTerm) (filter.Node, error) {
	field, err := v.schema.Filterable(t.Field.Text())
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(t.Values))
	for _, tok := range t.Values {
		value, ok := coerceToken(field, tok)
		if !ok {
			v.dropped(field, tok)
			continue
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, nil
	}

	if len(t.Values) > 1 {
		if field.Array {
			return v.predicate(field, filter.OpContains, values, true), nil
		}
		return v.predicate(field, filter.OpIn, values, true), nil
	}

	value := values[0]
	if field.Array {
		return v.predicate(field, filter.OpContains, values, false), nil
	}
	if s, ok := value.(string); ok && (strings.HasPrefix(s, wildcard) || strings.HasSuffix(s, wildcard)) {
		return v.predicate(field, filter.OpLike, []any{likePattern(s)}, false), nil
	}
	if field.Fulltext {
		return v.predicate(field, filter.OpFulltext, values, false), nil
	}
	return v.predicate(field, filter.OpEq, values, false), nil
}

// likePattern turns foo* into foo%, *foo into %foo and *foo* into %foo%
func likePattern(s string) string {
	lead := strings.HasPrefix(s, wildcard)
	if lead {
		s = s[len(wildcard):]
	}
	trail := strings.HasSuffix(s, wildcard)
	if trail {
		s = s[:len(s)-len(wildcard)]
	}

	var sb strings.Builder
	if lead {
		sb.WriteByte('%')
	}
	sb.WriteString(s)
	if trail {
		sb.WriteByte('%')
	}
	return sb.String()
}

var comparators = map[parser.Kind]filter.Operator{
	parser.LT:  filter.OpLt,
	parser.LTE: filter.OpLte,
	parser.GT:  filter.OpGt,
	parser.GTE: filter.OpGte,
}

func (v *visitor) otherTerm(t *parser.OtherFieldTerm) (filter.Node, error) {
	field, err := v.schema.Filterable(t.Field.Text())
	if err != nil {
		return nil, err
	}
	op, ok := comparators[t.Op.Kind]
	if !ok {
		return nil, &parser.SyntaxError{Pos: t.Op.Pos, Msg: "unknown comparator " + t.Op.Lexeme}
	}
	value, ok := coerceToken(field, t.Value)
	if !ok {
		v.dropped(field, t.Value)
		return nil, nil
	}
	return v.predicate(field, op, []any{value}, false), nil
}

// globalTerm matches the value against every searchable field it can be
// coerced to. The result is always an OR, even with a single predicate.
func (v *visitor) globalTerm(t *parser.GlobalTerm) filter.Node {
	var preds []filter.Node
	for _, field := range v.schema.Searchable() {
		value, ok := coerceToken(field, t.Value)
		if !ok {
			continue
		}
		op := filter.OpEq
		switch {
		case field.Array:
			op = filter.OpContains
		case field.Fulltext:
			op = filter.OpFulltext
		}
		if p := v.predicate(field, op, []any{value}, false); p != nil {
			preds = append(preds, p)
		}
	}
	if len(preds) == 0 {
		return nil
	}
	return filter.Or(preds...)
}

// predicate applies the field's replacement: a transform builds the node
// itself, a rename changes the store path
func (v *visitor) predicate(field types.Field, op filter.Operator, values []any, multi bool) filter.Node {
	if fn, ok := field.Transformer(); ok {
		return fn(field, op, values)
	}
	if multi {
		return filter.NewMultiPredicate(field.StorePath(), op, values)
	}
	return filter.NewPredicate(field.StorePath(), op, values[0])
}

func (v *visitor) dropped(field types.Field, tok parser.Token) {
	v.log.Debug().
		Str("field", field.Name).
		Str("type", field.Type.String()).
		Str("value", tok.Lexeme).
		Msg("dropping term: value does not match field type")
}
