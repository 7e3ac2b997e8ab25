package query

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/parser"
	"github.com/arthur-debert/nanoquery/nanoquery/testutil"
	"github.com/arthur-debert/nanoquery/types"
)

func parse(t *testing.T, schema *types.Schema, text string) filter.Node {
	t.Helper()
	n, err := Parse(text, schema, Options{Strict: true})
	require.NoError(t, err, "query %q", text)
	return n
}

func rendered(n filter.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

func TestParseTitleSearch(t *testing.T) {
	schema := testutil.MustSchema(t,
		types.Field{Name: "id", Filterable: true, Sortable: true},
		types.Field{Name: "title", Searchable: true, Filterable: true},
		types.Field{Name: "status", Filterable: true},
	)
	got := parse(t, schema, `status:draft "hello"`)
	assert.Equal(t, `AND(EQ(status, "draft"), OR(EQ(title, "hello")))`, rendered(got))
}

func TestParse(t *testing.T) {
	schema := testutil.PostSchema(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"blank", "   ", "<nil>"},
		{"scoped", "status:draft", `EQ(status, "draft")`},
		{"value list", "status:draft,published", `IN(status, ["draft", "published"])`},
		{"array single", "tags:go", `CONTAINS(tags, "go")`},
		{"array list", "tags:a,b", `CONTAINS(tags, ["a", "b"])`},
		{"number", "views>=10", "GTE(views, 10)"},
		{"number keeps float", "views<2.5", "LT(views, 2.5)"},
		{"bigint", "score>9007199254740993", "GT(score, 9007199254740993)"},
		{"bigint small", "score:42", "EQ(score, 42)"},
		{"boolean", "published:TRUE", "EQ(published, true)"},
		{"date", "created>=2024-02-01", "GTE(created, 2024-02-01T00:00:00Z)"},
		{"null", "status:null", "EQ(status, null)"},
		{"string keeps lexeme", "status:1.50", `EQ(status, "1.50")`},
		{"rename", "author:alice", `EQ(author.name, "alice")`},
		{"fulltext scoped", `body:"quick fox"`, `FULLTEXT(body, "quick fox")`},
		{"wildcard suffix", "title:hel*", `LIKE(title, "hel%")`},
		{"wildcard prefix", "title:*llo", `LIKE(title, "%llo")`},
		{"wildcard both", "title:*ell*", `LIKE(title, "%ell%")`},
		{"wildcard on fulltext field", "body:*notes", `LIKE(body, "%notes")`},
		{
			name: "global",
			text: "hello",
			want: `OR(EQ(title, "hello"), CONTAINS(tags, "hello"), FULLTEXT(body, "hello"))`,
		},
		{
			name: "implicit and",
			text: "status:draft views>10",
			want: `AND(EQ(status, "draft"), GT(views, 10))`,
		},
		{
			name: "or collapses single conjunctions",
			text: "status:draft OR status:archived",
			want: `OR(EQ(status, "draft"), EQ(status, "archived"))`,
		},
		{"negated leaf", "-status:draft", `NOT(AND(EQ(status, "draft")))`},
		{"NOT keyword", "NOT published:true", "NOT(AND(EQ(published, true)))"},
		{
			name: "negated group",
			text: "-(status:draft OR status:archived)",
			want: `NOT(OR(EQ(status, "draft"), EQ(status, "archived")))`,
		},
		{"double negation", "NOT -status:draft", `NOT(NOT(AND(EQ(status, "draft"))))`},
		{
			name: "negated global",
			text: "-hello",
			want: `NOT(OR(EQ(title, "hello"), CONTAINS(tags, "hello"), FULLTEXT(body, "hello")))`,
		},
		{"group of one", "(status:draft)", `EQ(status, "draft")`},
		{"uncoercible dropped", "views:abc status:draft", `EQ(status, "draft")`},
		{"everything dropped", "views:abc", "<nil>"},
		{"partial list", "views:1,abc,3", "IN(views, [1, 3])"},
		{"negated dropped term", "-views:abc", "<nil>"},
		{"value with leading minus", "title:-draft", `EQ(title, "-draft")`},
		{"list value with leading minus", "status:draft,-x", `IN(status, ["draft", "-x"])`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rendered(parse(t, schema, tt.text)))
		})
	}
}

func TestGlobalTermCoercion(t *testing.T) {
	schema := testutil.MustSchema(t,
		types.Field{Name: "id", Filterable: true},
		types.Field{Name: "title", Searchable: true},
		types.Field{Name: "views", Type: types.Number, Searchable: true},
		types.Field{Name: "created", Type: types.Date, Searchable: true},
	)

	assert.Equal(t, `OR(EQ(title, "abc"))`, rendered(parse(t, schema, "abc")))
	assert.Equal(t, `OR(EQ(title, "42"), EQ(views, 42))`, rendered(parse(t, schema, "42")))
	assert.Equal(t,
		`OR(EQ(title, "2024-01-02"), EQ(created, 2024-01-02T00:00:00Z))`,
		rendered(parse(t, schema, "2024-01-02")))
}

func TestGlobalTermWithoutSearchableFields(t *testing.T) {
	schema := testutil.MustSchema(t,
		types.Field{Name: "id", Filterable: true},
		types.Field{Name: "status", Filterable: true},
	)
	assert.Nil(t, parse(t, schema, "hello"))
	assert.Equal(t, `EQ(status, "draft")`, rendered(parse(t, schema, "hello status:draft")))
}

func TestBigIntValue(t *testing.T) {
	schema := testutil.PostSchema(t)
	n := parse(t, schema, "score:9007199254740993")
	p, ok := n.(*filter.Predicate)
	require.True(t, ok)
	v, ok := p.Value().(*big.Int)
	require.True(t, ok, "expected *big.Int, got %T", p.Value())
	assert.Equal(t, 0, v.Cmp(testutil.BigScore))
}

func TestDateValue(t *testing.T) {
	schema := testutil.PostSchema(t)
	p := parse(t, schema, "created<2024-01-02T10:30:00Z").(*filter.Predicate)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC), p.Value())
}

func TestUnknownField(t *testing.T) {
	schema := testutil.PostSchema(t)
	for _, text := range []string{"nope:1", "nope>1", "-(a nope:x)"} {
		_, err := Parse(text, schema, Options{})
		assert.ErrorIs(t, err, types.ErrUnknownField, text)
	}

	schema = testutil.MustSchema(t,
		types.Field{Name: "id", Filterable: true},
		types.Field{Name: "secret"},
	)
	_, err := Parse("secret:x", schema, Options{})
	var ufe *types.UnknownFieldError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, "secret", ufe.Field)
	assert.Contains(t, err.Error(), "not filterable")
}

func TestStrictness(t *testing.T) {
	schema := testutil.PostSchema(t)

	n, err := Parse("status:(", schema, Options{})
	assert.NoError(t, err)
	assert.Nil(t, n)

	_, err = Parse("status:(", schema, Options{Strict: true})
	assert.ErrorIs(t, err, parser.ErrSyntax)

	_, err = Parse(`"unterminated`, schema, Options{Strict: true})
	assert.ErrorIs(t, err, parser.ErrSyntax)
}

func TestTransform(t *testing.T) {
	var gotOp filter.Operator
	var gotValues []any
	schema := testutil.MustSchema(t,
		types.Field{Name: "id", Filterable: true},
		types.Field{
			Name:       "mine",
			Type:       types.Boolean,
			Filterable: true,
			Replace: types.Transform{Fn: func(f types.Field, op filter.Operator, values []any) filter.Node {
				gotOp, gotValues = op, values
				if values[0] == true {
					return filter.Eq("owner", "me")
				}
				return filter.Ne("owner", "me")
			}},
		},
		types.Field{
			Name:       "ignored",
			Filterable: true,
			Replace: types.Transform{Fn: func(types.Field, filter.Operator, []any) filter.Node {
				return nil
			}},
		},
	)

	assert.Equal(t, `EQ(owner, "me")`, rendered(parse(t, schema, "mine:true")))
	assert.Equal(t, filter.OpEq, gotOp)
	assert.Equal(t, []any{true}, gotValues)

	assert.Equal(t, `NE(owner, "me")`, rendered(parse(t, schema, "mine:false")))
	assert.Equal(t, "<nil>", rendered(parse(t, schema, "ignored:x")))
	assert.Equal(t, "<nil>", rendered(parse(t, schema, "-ignored:x")))
}

func TestVisit(t *testing.T) {
	schema := testutil.PostSchema(t)
	tree, err := parser.Parse("status:draft")
	require.NoError(t, err)
	n, err := Visit(tree, schema)
	require.NoError(t, err)
	assert.True(t, filter.Equal(filter.Eq("status", "draft"), n))

	n, err = Visit(&parser.Query{}, schema)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "foo%", likePattern("foo*"))
	assert.Equal(t, "%foo", likePattern("*foo"))
	assert.Equal(t, "%foo%", likePattern("*foo*"))
	assert.Equal(t, "%", likePattern("*"))
	assert.Equal(t, "f*o", likePattern("f*o"))
}
