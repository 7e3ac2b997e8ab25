// Package connection implements cursor pagination over a Store.
//
// A Builder turns paging arguments, query text, request filters and a
// caller-supplied filter into one bounded fetch and one count, both issued
// concurrently, and assembles the page from the results. The fetch asks for
// one row more than the page size so the existence of a further page is known
// without a second round-trip.
package connection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/nanoquery/internal/logging"
	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/types"
)

// Options configures a Builder
type Options struct {
	// Strict surfaces query syntax errors instead of ignoring the query text
	Strict bool

	// DefaultLimit is the page size when neither first nor last is given
	DefaultLimit int

	// MaxLimit caps the page size when positive
	MaxLimit int

	// Logger overrides the package logger
	Logger *zerolog.Logger
}

// Builder computes one page of a connection. A Builder serves a single
// request; create a new one for each call.
type Builder struct {
	store  types.Store
	schema *types.Schema
	args   Args
	extra  filter.Node
	opts   Options
	log    zerolog.Logger
}

// NewBuilder creates a builder for one request. extra is an optional
// caller-supplied filter that is always applied.
func NewBuilder(store types.Store, schema *types.Schema, args Args, extra filter.Node, opts Options) *Builder {
	log := logging.GetLogger("connection")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Builder{
		store:  store,
		schema: schema,
		args:   args,
		extra:  extra,
		opts:   opts,
		log:    log,
	}
}

// plan is everything derived from the request before touching the store
type plan struct {
	limit      int
	direction  PagingDirection
	cursor     *Cursor
	order      types.Direction
	orderField *types.Field
	sort       []types.SortKey
	fetch      filter.Node
	count      filter.Node
}

// Build runs the fetch and the count and assembles the page
func (b *Builder) Build(ctx context.Context) (*Connection, error) {
	p, err := b.plan()
	if err != nil {
		return nil, err
	}

	b.log.Debug().
		Int("limit", p.limit).
		Stringer("direction", p.direction).
		Str("order", string(p.order)).
		Interface("sort", p.sort).
		Bool("cursor", p.cursor != nil).
		Str("filter", render(p.fetch)).
		Msg("executing connection query")

	var (
		rows  []types.Record
		total int
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = b.store.Find(gctx, types.FindOptions{
			Filter: p.fetch,
			Sort:   p.sort,
			Limit:  p.limit + 1,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = b.store.Count(gctx, p.count)
		if err != nil {
			return fmt.Errorf("failed to count records: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.log.Debug().
		Int("rows", len(rows)).
		Int("total", total).
		Dur("elapsed", time.Since(start)).
		Msg("connection query complete")

	return b.assemble(p, rows, total), nil
}

func (b *Builder) plan() (*plan, error) {
	direction, err := b.args.direction()
	if err != nil {
		return nil, err
	}

	p := &plan{direction: direction}

	if p.limit, err = b.limit(); err != nil {
		return nil, err
	}

	p.cursor = b.cursor()

	requested := types.Ascending
	if ob := b.args.OrderBy; ob != nil {
		if requested, err = types.ParseDirection(string(ob.Direction)); err != nil {
			return nil, err
		}
		if ob.Field != "" && ob.Field != types.IDField {
			field, err := b.schema.Sortable(ob.Field)
			if err != nil {
				return nil, err
			}
			p.orderField = &field
		}
	}

	p.order = types.Descending
	if (direction == Forward && requested == types.Ascending) ||
		(direction == Backward && requested == types.Descending) {
		p.order = types.Ascending
	}

	if p.orderField != nil {
		p.sort = append(p.sort, types.SortKey{Field: p.orderField.StorePath(), Direction: p.order})
	}
	p.sort = append(p.sort, types.SortKey{Field: types.IDField, Direction: p.order})

	qopts := query.Options{Strict: b.opts.Strict, Logger: &b.log}
	queryFilter, err := query.Parse(b.args.Query, b.schema, qopts)
	if err != nil {
		return nil, err
	}
	argsFilter, err := query.ArgsFilter(b.schema, b.args.Filter, qopts)
	if err != nil {
		return nil, err
	}

	p.fetch = filter.AllOf(b.cursorFilter(p), b.extra, queryFilter, argsFilter)
	p.count = filter.AllOf(b.extra, queryFilter, argsFilter)
	return p, nil
}

func (b *Builder) limit() (int, error) {
	limit := b.opts.DefaultLimit
	switch {
	case b.args.First != nil:
		limit = *b.args.First
	case b.args.Last != nil:
		limit = *b.args.Last
	}
	if limit < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if b.opts.MaxLimit > 0 && limit > b.opts.MaxLimit {
		limit = b.opts.MaxLimit
	}
	return limit, nil
}

// cursor decodes after, else before. A cursor that does not decode restarts
// pagination from the beginning of the set.
func (b *Builder) cursor() *Cursor {
	raw := b.args.After
	if raw == nil {
		raw = b.args.Before
	}
	if raw == nil {
		return nil
	}
	c, err := DecodeCursor(*raw)
	if err != nil {
		if errors.Is(err, ErrCursorDecode) {
			b.log.Debug().Err(err).Msg("ignoring undecodable cursor")
		}
		return nil
	}
	return &c
}

// cursorFilter selects the rows strictly after the cursor in the resolved
// sort order. With a custom order the field is compared first and id breaks
// ties. Nulls sort before every value, matching SQL stores.
func (b *Builder) cursorFilter(p *plan) filter.Node {
	c := p.cursor
	if c == nil {
		return nil
	}

	op := filter.OpGt
	if p.order == types.Descending {
		op = filter.OpLt
	}
	byID := filter.NewPredicate(types.IDField, op, c.ID)

	if p.orderField == nil {
		return byID
	}
	if !c.HasValue {
		b.log.Debug().Str("orderBy", p.orderField.Name).Msg("cursor carries no sort value, paging by id only")
		return byID
	}

	path := p.orderField.StorePath()
	if c.Value == nil {
		tied := filter.And(filter.Eq(path, nil), byID)
		if p.order == types.Ascending {
			return filter.Or(filter.Ne(path, nil), tied)
		}
		return tied
	}

	tied := filter.And(filter.Eq(path, c.Value), byID)
	if p.order == types.Ascending {
		return filter.Or(filter.Gt(path, c.Value), tied)
	}
	return filter.Or(filter.Lt(path, c.Value), filter.Eq(path, nil), tied)
}

func (b *Builder) assemble(p *plan, rows []types.Record, total int) *Connection {
	if p.direction == Backward {
		slices.Reverse(rows)
	}

	hasMore := len(rows) > p.limit
	if hasMore {
		if p.direction == Forward {
			rows = rows[:p.limit]
		} else {
			rows = rows[len(rows)-p.limit:]
		}
	}

	conn := &Connection{
		Edges:      make([]Edge, 0, len(rows)),
		TotalCount: total,
	}
	hasCursor := p.cursor != nil
	if p.direction == Forward {
		conn.PageInfo.HasNextPage = hasMore
		conn.PageInfo.HasPreviousPage = hasCursor
	} else {
		conn.PageInfo.HasNextPage = hasCursor
		conn.PageInfo.HasPreviousPage = hasMore
	}

	for _, row := range rows {
		c := NewCursor(row.ID())
		if p.orderField != nil {
			v, _ := row.Lookup(p.orderField.StorePath())
			c = c.WithValue(v)
		}
		conn.Edges = append(conn.Edges, Edge{Node: row, Cursor: EncodeCursor(c)})
	}

	if n := len(conn.Edges); n > 0 {
		start, end := conn.Edges[0].Cursor, conn.Edges[n-1].Cursor
		conn.PageInfo.StartCursor = &start
		conn.PageInfo.EndCursor = &end
	}
	return conn
}

func render(n filter.Node) string {
	if n == nil {
		return ""
	}
	return n.String()
}
