package filter

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func getter(rec map[string]any) Getter {
	return func(path string) (any, bool) {
		v, ok := rec[path]
		return v, ok
	}
}

func TestMatch(t *testing.T) {
	rec := map[string]any{
		"status":  "draft",
		"title":   "Hello World",
		"views":   float64(25),
		"score":   int64(50),
		"tags":    []any{"go", "db"},
		"labels":  []string{"x", "y"},
		"created": time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		"body":    "The quick brown fox",
		"owner":   nil,
		"flag":    true,
	}
	get := getter(rec)

	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"nil matches", nil, true},
		{"eq", Eq("status", "draft"), true},
		{"eq miss", Eq("status", "published"), false},
		{"eq across number types", Eq("views", int64(25)), true},
		{"eq null", Eq("owner", nil), true},
		{"eq missing is null", Eq("missing", nil), true},
		{"ne null on value", Ne("status", nil), true},
		{"ne missing", Ne("missing", "x"), true},
		{"lt", Lt("views", 30), true},
		{"lte equal", Lte("score", 50), true},
		{"gt false", Gt("score", 50), false},
		{"gte numeric string", Gte("views", "25"), true},
		{"relational on null", Gt("owner", 1), false},
		{"relational on missing", Lt("missing", 1), false},
		{"date gt string", Gt("created", "2024-02-01"), true},
		{"date lt", Lt("created", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), false},
		{"in", In("status", "published", "draft"), true},
		{"in miss", In("status", "archived"), false},
		{"contains", Contains("tags", "go"), true},
		{"contains typed slice", Contains("labels", "y"), true},
		{"contains all", ContainsAll("tags", "go", "db"), true},
		{"contains all miss", ContainsAll("tags", "go", "rust"), false},
		{"contains on scalar", Contains("status", "draft"), false},
		{"like", Like("title", "hello%"), true},
		{"like case insensitive", Like("title", "%WORLD"), true},
		{"like underscore", Like("status", "dr_ft"), true},
		{"like miss", Like("title", "%bye%"), false},
		{"like non string", Like("views", "%2%"), false},
		{"fulltext all words", Fulltext("body", "quick FOX"), true},
		{"fulltext missing word", Fulltext("body", "quick cat"), false},
		{"fulltext array", Fulltext("tags", "db"), true},
		{"bool eq", Eq("flag", true), true},
		{"and", And(Eq("status", "draft"), Gt("views", 10)), true},
		{"and short", And(Eq("status", "draft"), Gt("views", 100)), false},
		{"or", Or(Eq("status", "x"), Eq("flag", true)), true},
		{"empty or", Or(), false},
		{"empty and", And(), true},
		{"not", Not(Eq("status", "draft")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.node, get))
		})
	}
}

func TestLikeMatch(t *testing.T) {
	tests := []struct {
		pattern, s string
		want       bool
	}{
		{"%", "", true},
		{"%", "anything", true},
		{"", "", true},
		{"", "a", false},
		{"a%c", "abbbc", true},
		{"a%c", "abbbd", false},
		{"%a%a%", "banana", true},
		{"_", "ab", false},
		{"__", "ab", true},
		{"%ana", "banana", true},
		{"héllo%", "héllo there", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, likeMatch(tt.pattern, tt.s), "%q ~ %q", tt.s, tt.pattern)
	}
}

func TestCompare(t *testing.T) {
	huge, _ := new(big.Int).SetString("9007199254740993", 10)

	tests := []struct {
		name string
		a, b any
		want int
		ok   bool
	}{
		{"nil", nil, 1, 0, false},
		{"ints", 1, int64(2), -1, true},
		{"int float", 3, 2.5, 1, true},
		{"uint", uint8(7), 7.0, 0, true},
		{"bigint exact", huge, int64(9007199254740992), 1, true},
		{"json number", json.Number("10"), 10, 0, true},
		{"number vs numeric string", 10, "9.5", 1, true},
		{"number vs text", 10, "abc", 0, false},
		{"strings", "a", "b", -1, true},
		{"bools", false, true, -1, true},
		{"bool vs string", true, "true", 0, false},
		{"time vs string", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-01-01", 0, true},
		{"time vs junk", time.Now(), "junk", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Compare(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(nil, nil))
	assert.False(t, ValuesEqual(nil, ""))
	assert.True(t, ValuesEqual(float64(1), int64(1)))
	assert.True(t, ValuesEqual([]any{"a"}, []any{"a"}))
	assert.False(t, ValuesEqual("1", true))
}
