// Package testutil provides the shared posts fixture used across nanoquery tests.
//
// The dataset has 14 posts with ids p01..p14:
//   - 10 drafts (p01..p10), two of them titled exactly "hello" (p01, p03)
//   - 3 published posts (p11, p12, p14), one titled "hello" (p11)
//   - 1 archived post (p13)
//
// views has ties (10, 25, 40, 5) so ordering by it exercises the id
// tie-break. p14 carries a score above the float-safe integer range.
package testutil

import (
	"math/big"
	"testing"
	"time"

	"github.com/arthur-debert/nanoquery/internal/validation"
	"github.com/arthur-debert/nanoquery/nanoquery/store"
	"github.com/arthur-debert/nanoquery/types"
)

// BigScore is the score of p14, 2^53+1
var BigScore, _ = new(big.Int).SetString("9007199254740993", 10)

type post struct {
	id        string
	title     string
	status    string
	views     float64
	published bool
	created   string
	tags      []any
	author    string
	body      string
}

var posts = []post{
	{"p01", "hello", "draft", 10, false, "2024-01-01", []any{"go", "db"}, "alice", "Getting started with Go"},
	{"p02", "Intro to Go", "draft", 25, false, "2024-01-02", []any{"go"}, "bob", "A short introduction to the Go language"},
	{"p03", "hello", "draft", 10, false, "2024-01-03", []any{"misc"}, "carol", "hello again"},
	{"p04", "Pagination patterns", "draft", 40, false, "2024-01-04", []any{"db", "api"}, "alice", "Cursor pagination with stable ordering"},
	{"p05", "Query languages", "draft", 25, false, "2024-01-05", []any{"api"}, "bob", "Designing a small query language"},
	{"p06", "Draft six", "draft", 5, false, "2024-01-06", []any{}, "carol", "Work in progress"},
	{"p07", "Draft seven", "draft", 40, false, "2024-01-07", []any{"go", "api"}, "alice", "Another work in progress"},
	{"p08", "Draft eight", "draft", 15, false, "2024-01-08", []any{"db"}, "bob", "Notes on indexing"},
	{"p09", "Draft nine", "draft", 25, false, "2024-01-09", []any{"misc"}, "carol", "Random notes"},
	{"p10", "Draft ten", "draft", 0, false, "2024-01-10", []any{}, "alice", "Empty thoughts"},
	{"p11", "hello", "published", 100, true, "2024-02-01", []any{"go"}, "bob", "Published hello"},
	{"p12", "Release notes", "published", 250, true, "2024-02-02", []any{"go", "release"}, "carol", "What is new in this release"},
	{"p13", "Archived post", "archived", 5, false, "2023-12-01", []any{"misc"}, "alice", "Old content"},
	{"p14", "Big numbers", "published", 75, true, "2024-02-03", []any{"db"}, "bob", "Counting beyond float precision"},
}

// Date parses a YYYY-MM-DD date in UTC
func Date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// Posts returns a fresh copy of the dataset. Authors are nested objects
// addressed as author.name.
func Posts() []types.Record {
	out := make([]types.Record, len(posts))
	for i, p := range posts {
		var score any = int64(p.views) * 2
		if p.id == "p14" {
			score = new(big.Int).Set(BigScore)
		}
		tags := make([]any, len(p.tags))
		copy(tags, p.tags)

		out[i] = types.Record{
			"id":        p.id,
			"title":     p.title,
			"status":    p.status,
			"views":     p.views,
			"score":     score,
			"published": p.published,
			"created":   Date(p.created),
			"tags":      tags,
			"author":    map[string]any{"name": p.author},
			"body":      p.body,
		}
	}
	return out
}

// PostFields returns the field declarations of the posts schema
func PostFields() []types.Field {
	return []types.Field{
		{Name: "id", Type: types.String, Filterable: true, Sortable: true},
		{Name: "title", Type: types.String, Searchable: true, Filterable: true, Sortable: true},
		{Name: "status", Type: types.String, Filterable: true, Sortable: true},
		{Name: "views", Type: types.Number, Filterable: true, Sortable: true},
		{Name: "score", Type: types.BigInt, Filterable: true, Sortable: true},
		{Name: "published", Type: types.Boolean, Filterable: true},
		{Name: "created", Type: types.Date, Filterable: true, Sortable: true},
		{Name: "tags", Type: types.String, Array: true, Searchable: true, Filterable: true},
		{Name: "author", Type: types.String, Filterable: true, Sortable: true, Replace: types.Rename{Path: "author.name"}},
		{Name: "body", Type: types.String, Fulltext: true, Searchable: true, Filterable: true},
	}
}

// PostSchema returns the validated posts schema
func PostSchema(t testing.TB) *types.Schema {
	t.Helper()
	return MustSchema(t, PostFields()...)
}

// MustSchema builds and validates a schema, failing the test on error
func MustSchema(t testing.TB, fields ...types.Field) *types.Schema {
	t.Helper()
	s, err := types.NewSchema(fields...)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if err := validation.Validate(s); err != nil {
		t.Fatalf("invalid schema: %v", err)
	}
	return s
}

// NewMemoryStore returns a memory store loaded with the posts
func NewMemoryStore(t testing.TB) *store.MemoryStore {
	t.Helper()
	return store.NewMemoryStore(Posts())
}

// IDs returns the ids of records in order
func IDs(records []types.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i], _ = r.ID().(string)
	}
	return out
}
