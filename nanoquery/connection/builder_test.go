package connection

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/parser"
	"github.com/arthur-debert/nanoquery/nanoquery/store"
	"github.com/arthur-debert/nanoquery/nanoquery/testutil"
	"github.com/arthur-debert/nanoquery/types"
)

// byViews is the fixture ordered by views ascending, id breaking ties
var byViews = []string{"p10", "p06", "p13", "p01", "p03", "p08", "p02", "p05", "p09", "p04", "p07", "p14", "p11", "p12"}

func build(t *testing.T, store types.Store, args Args, extra filter.Node, opts Options) *Connection {
	t.Helper()
	conn, err := NewBuilder(store, testutil.PostSchema(t), args, extra, opts).Build(context.Background())
	require.NoError(t, err)
	return conn
}

func newStore(records []types.Record) types.Store {
	return store.NewMemoryStore(records)
}

func ids(conn *Connection) []string {
	return testutil.IDs(conn.Nodes())
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

func TestFirstPageOfSearch(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	conn := build(t, store, Args{First: Ptr(1), Query: `status:draft "hello"`}, nil, Options{})

	assert.Equal(t, []string{"p01"}, ids(conn))
	assert.Equal(t, 2, conn.TotalCount)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.False(t, conn.PageInfo.HasPreviousPage)
	require.NotNil(t, conn.PageInfo.StartCursor)
	assert.Equal(t, conn.Edges[0].Cursor, *conn.PageInfo.StartCursor)
	assert.Equal(t, conn.Edges[0].Cursor, *conn.PageInfo.EndCursor)

	next := build(t, store, Args{First: Ptr(1), After: conn.PageInfo.EndCursor, Query: `status:draft "hello"`}, nil, Options{})
	assert.Equal(t, []string{"p03"}, ids(next))
	assert.Equal(t, 2, next.TotalCount)
	assert.False(t, next.PageInfo.HasNextPage)
	assert.True(t, next.PageInfo.HasPreviousPage)
}

// walkForward follows endCursor until the last page, checking that every
// page reports the same total
func walkForward(t *testing.T, store types.Store, args Args, size int) []string {
	t.Helper()
	var seen []string
	total := -1
	for page := 0; page < 100; page++ {
		args.First = Ptr(size)
		conn := build(t, store, args, nil, Options{})
		if total >= 0 {
			require.Equal(t, total, conn.TotalCount, "totalCount changed between pages")
		}
		total = conn.TotalCount
		assert.LessOrEqual(t, len(conn.Edges), size)
		assert.Equal(t, page > 0, conn.PageInfo.HasPreviousPage, "page %d", page)

		seen = append(seen, ids(conn)...)
		if !conn.PageInfo.HasNextPage {
			require.Equal(t, total, len(seen), "pages do not cover the set")
			return seen
		}
		args.After = conn.PageInfo.EndCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

// walkBackward follows startCursor from the end of the set
func walkBackward(t *testing.T, store types.Store, args Args, size int) []string {
	t.Helper()
	var seen []string
	for page := 0; page < 100; page++ {
		args.Last = Ptr(size)
		conn := build(t, store, args, nil, Options{})
		assert.Equal(t, page > 0, conn.PageInfo.HasNextPage, "page %d", page)

		seen = append(ids(conn), seen...)
		if !conn.PageInfo.HasPreviousPage {
			require.Equal(t, conn.TotalCount, len(seen), "pages do not cover the set")
			return seen
		}
		args.Before = conn.PageInfo.StartCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestPaginationCoverage(t *testing.T) {
	store := testutil.NewMemoryStore(t)

	for _, size := range []int{1, 3, 4, 14, 20} {
		asc := Args{OrderBy: &OrderBy{Field: "views", Direction: types.Ascending}}
		desc := Args{OrderBy: &OrderBy{Field: "views", Direction: types.Descending}}

		assert.Equal(t, byViews, walkForward(t, store, asc, size), "forward asc, size %d", size)
		assert.Equal(t, reversed(byViews), walkForward(t, store, desc, size), "forward desc, size %d", size)
		assert.Equal(t, byViews, walkBackward(t, store, asc, size), "backward asc, size %d", size)
		assert.Equal(t, reversed(byViews), walkBackward(t, store, desc, size), "backward desc, size %d", size)
	}
}

func TestPaginationByID(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	all := testutil.IDs(testutil.Posts())

	assert.Equal(t, all, walkForward(t, store, Args{}, 5))
	assert.Equal(t, all, walkBackward(t, store, Args{}, 5))
	assert.Equal(t, reversed(all), walkForward(t, store, Args{OrderBy: &OrderBy{Field: "id", Direction: types.Descending}}, 5))
}

func TestPaginationWithFilter(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	args := Args{
		Query:   "tags:go",
		Filter:  map[string]any{"status": []any{"draft", "published"}},
		OrderBy: &OrderBy{Field: "created", Direction: types.Descending},
	}
	assert.Equal(t, []string{"p12", "p11", "p07", "p02", "p01"}, walkForward(t, store, args, 2))
	assert.Equal(t, []string{"p12", "p11", "p07", "p02", "p01"}, walkBackward(t, store, args, 2))
}

func TestPaginationOverRenamedField(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	args := Args{OrderBy: &OrderBy{Field: "author"}, Query: "status:draft"}
	want := []string{"p01", "p04", "p07", "p10", "p02", "p05", "p08", "p03", "p06", "p09"}
	assert.Equal(t, want, walkForward(t, store, args, 3))
}

func TestPaginationOverNulls(t *testing.T) {
	records := []types.Record{
		{"id": "a", "views": nil},
		{"id": "b", "views": float64(2)},
		{"id": "c"},
		{"id": "d", "views": float64(1)},
		{"id": "e", "views": nil},
		{"id": "f", "views": float64(2)},
	}
	store := newStore(records)

	asc := Args{OrderBy: &OrderBy{Field: "views"}}
	desc := Args{OrderBy: &OrderBy{Field: "views", Direction: types.Descending}}
	want := []string{"a", "c", "e", "d", "b", "f"}

	for _, size := range []int{1, 2, 4} {
		assert.Equal(t, want, walkForward(t, store, asc, size), "size %d", size)
		assert.Equal(t, reversed(want), walkForward(t, store, desc, size), "size %d", size)
		assert.Equal(t, want, walkBackward(t, store, asc, size), "size %d", size)
		assert.Equal(t, reversed(want), walkBackward(t, store, desc, size), "size %d", size)
	}
}

func TestLastPage(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	conn := build(t, store, Args{Last: Ptr(4), OrderBy: &OrderBy{Field: "views"}}, nil, Options{})

	assert.Equal(t, []string{"p07", "p14", "p11", "p12"}, ids(conn))
	assert.True(t, conn.PageInfo.HasPreviousPage)
	assert.False(t, conn.PageInfo.HasNextPage)
	assert.Equal(t, 14, conn.TotalCount)

	prev := build(t, store, Args{Last: Ptr(4), Before: conn.PageInfo.StartCursor, OrderBy: &OrderBy{Field: "views"}}, nil, Options{})
	assert.Equal(t, []string{"p02", "p05", "p09", "p04"}, ids(prev))
	assert.True(t, prev.PageInfo.HasNextPage)
	assert.True(t, prev.PageInfo.HasPreviousPage)
}

func TestEdgeCursors(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	conn := build(t, store, Args{First: Ptr(3), OrderBy: &OrderBy{Field: "score"}}, nil, Options{})

	for _, e := range conn.Edges {
		c, err := DecodeCursor(e.Cursor)
		require.NoError(t, err)
		assert.Equal(t, e.Node.ID(), c.ID)
		assert.True(t, c.HasValue)
	}

	conn = build(t, store, Args{First: Ptr(3)}, nil, Options{})
	for _, e := range conn.Edges {
		c, err := DecodeCursor(e.Cursor)
		require.NoError(t, err)
		assert.False(t, c.HasValue)
	}
}

func TestBigIntOrdering(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	conn := build(t, store, Args{First: Ptr(2), OrderBy: &OrderBy{Field: "score", Direction: types.Descending}}, nil, Options{})
	assert.Equal(t, []string{"p14", "p12"}, ids(conn))

	next := build(t, store, Args{Last: Ptr(1), Before: conn.PageInfo.EndCursor, OrderBy: &OrderBy{Field: "score", Direction: types.Descending}}, nil, Options{})
	assert.Equal(t, []string{"p14"}, ids(next))
	assert.False(t, next.PageInfo.HasPreviousPage)
}

func TestExtraFilter(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	conn := build(t, store, Args{First: Ptr(10), Query: "hello"}, filter.Eq("status", "published"), Options{})
	assert.Equal(t, []string{"p11"}, ids(conn))
	assert.Equal(t, 1, conn.TotalCount)
}

func TestEmptyPage(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	conn := build(t, store, Args{First: Ptr(5), Query: "status:deleted"}, nil, Options{})
	assert.Empty(t, conn.Edges)
	assert.Nil(t, conn.PageInfo.StartCursor)
	assert.Nil(t, conn.PageInfo.EndCursor)
	assert.False(t, conn.PageInfo.HasNextPage)
	assert.Equal(t, 0, conn.TotalCount)
}

func TestLimits(t *testing.T) {
	store := testutil.NewMemoryStore(t)

	conn := build(t, store, Args{}, nil, Options{})
	assert.Empty(t, conn.Edges, "no page size means an empty page")
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.Equal(t, 14, conn.TotalCount)

	conn = build(t, store, Args{}, nil, Options{DefaultLimit: 5})
	assert.Len(t, conn.Edges, 5)

	conn = build(t, store, Args{First: Ptr(50)}, nil, Options{MaxLimit: 6})
	assert.Len(t, conn.Edges, 6)
	assert.True(t, conn.PageInfo.HasNextPage)

	_, err := NewBuilder(store, testutil.PostSchema(t), Args{First: Ptr(-1)}, nil, Options{}).Build(context.Background())
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestPagingDirectionErrors(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	cursor := EncodeCursor(NewCursor("p01"))

	tests := []struct {
		name string
		args Args
		msg  string
	}{
		{"first and last", Args{First: Ptr(1), Last: Ptr(1)}, "cannot paginate forwards AND backwards"},
		{"after and before", Args{After: &cursor, Before: &cursor}, "cannot paginate forwards AND backwards"},
		{"first and before", Args{First: Ptr(1), Before: &cursor}, "must use either first/after or last/before"},
		{"last and after", Args{Last: Ptr(1), After: &cursor}, "must use either first/after or last/before"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(store, testutil.PostSchema(t), tt.args, nil, Options{}).Build(context.Background())
			require.ErrorIs(t, err, ErrPagingDirection)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestInvalidCursorRestarts(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	conn := build(t, store, Args{First: Ptr(2), After: Ptr("garbage")}, nil, Options{})
	assert.Equal(t, []string{"p01", "p02"}, ids(conn))
	assert.False(t, conn.PageInfo.HasPreviousPage)
}

func TestCursorWithoutValue(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	after := EncodeCursor(NewCursor("p12"))
	conn := build(t, store, Args{First: Ptr(20), After: &after, OrderBy: &OrderBy{Field: "views"}}, nil, Options{})
	assert.Equal(t, []string{"p13", "p14"}, ids(conn))
}

func TestOrderByErrors(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	schema := testutil.PostSchema(t)

	_, err := NewBuilder(store, schema, Args{OrderBy: &OrderBy{Field: "tags"}}, nil, Options{}).Build(context.Background())
	assert.ErrorIs(t, err, types.ErrUnknownField)

	_, err = NewBuilder(store, schema, Args{OrderBy: &OrderBy{Field: "nope"}}, nil, Options{}).Build(context.Background())
	assert.ErrorIs(t, err, types.ErrUnknownField)

	_, err = NewBuilder(store, schema, Args{OrderBy: &OrderBy{Field: "views", Direction: "SIDEWAYS"}}, nil, Options{}).Build(context.Background())
	assert.Error(t, err)
}

func TestQueryErrors(t *testing.T) {
	store := testutil.NewMemoryStore(t)
	schema := testutil.PostSchema(t)

	conn, err := NewBuilder(store, schema, Args{First: Ptr(1), Query: "status:("}, nil, Options{}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 14, conn.TotalCount, "malformed text is ignored")

	_, err = NewBuilder(store, schema, Args{First: Ptr(1), Query: "status:("}, nil, Options{Strict: true}).Build(context.Background())
	assert.ErrorIs(t, err, parser.ErrSyntax)

	_, err = NewBuilder(store, schema, Args{First: Ptr(1), Query: "nope:1"}, nil, Options{}).Build(context.Background())
	assert.ErrorIs(t, err, types.ErrUnknownField)
}

// stubStore records the options it was called with and fails on demand
type stubStore struct {
	findErr  error
	countErr error
	calls    atomic.Int32
	opts     types.FindOptions
	count    filter.Node
}

func (s *stubStore) Find(ctx context.Context, opts types.FindOptions) ([]types.Record, error) {
	s.calls.Add(1)
	s.opts = opts
	return nil, s.findErr
}

func (s *stubStore) Count(ctx context.Context, f filter.Node) (int, error) {
	s.calls.Add(1)
	s.count = f
	return 0, s.countErr
}

func TestStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	schema := testutil.PostSchema(t)

	_, err := NewBuilder(&stubStore{findErr: boom}, schema, Args{First: Ptr(1)}, nil, Options{}).Build(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to fetch records")

	_, err = NewBuilder(&stubStore{countErr: boom}, schema, Args{First: Ptr(1)}, nil, Options{}).Build(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to count records")
}

func TestStoreRequests(t *testing.T) {
	s := &stubStore{}
	after := EncodeCursor(NewCursor("p03").WithValue(float64(10)))
	args := Args{
		First:   Ptr(3),
		After:   &after,
		OrderBy: &OrderBy{Field: "views", Direction: types.Descending},
		Query:   "status:draft",
	}
	_, err := NewBuilder(s, testutil.PostSchema(t), args, nil, Options{}).Build(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, s.calls.Load())
	assert.Equal(t, 4, s.opts.Limit, "fetch peeks one row past the page")
	assert.Equal(t, []types.SortKey{
		{Field: "views", Direction: types.Descending},
		{Field: "id", Direction: types.Descending},
	}, s.opts.Sort)

	fetch := s.opts.Filter.String()
	assert.True(t, strings.HasPrefix(fetch, `AND(OR(LT(views, 10), EQ(views, null), AND(EQ(views, 10), LT(id, "p03")))`), fetch)
	assert.Equal(t, `EQ(status, "draft")`, s.count.String(), "count ignores the cursor")
}
