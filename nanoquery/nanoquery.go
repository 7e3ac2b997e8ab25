// Package nanoquery provides filter query text and cursor pagination over a
// pluggable record store.
//
// A Manager answers connection requests: it parses the query text of a request
// against a field schema, merges it with the request's filter arguments and a
// caller-supplied filter, and returns one page of records together with page
// info and the total count of the filtered set.
//
//	schema, _ := nanoquery.NewSchema(
//		nanoquery.Field{Name: "title", Searchable: true, Filterable: true, Sortable: true},
//		nanoquery.Field{Name: "status", Filterable: true},
//	)
//	m := nanoquery.New(store.NewMemoryStore(records), nanoquery.WithDefaultLimit(20))
//	conn, err := m.Find(ctx, schema, nanoquery.Args{Query: `status:draft "hello"`, First: nanoquery.Ptr(10)}, nil)
package nanoquery

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/nanoquery/internal/validation"
	"github.com/arthur-debert/nanoquery/nanoquery/connection"
	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

// Schema is the field declaration of a connection
type Schema = types.Schema

// Field declares one schema field
type Field = types.Field

// Record is a single stored row
type Record = types.Record

// Store is the storage collaborator a Manager reads from
type Store = types.Store

// Args are the paging arguments of a request
type Args = connection.Args

// OrderBy selects the ordering field of a request
type OrderBy = connection.OrderBy

// Connection is one page of results
type Connection = connection.Connection

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// NewSchema creates and validates a schema
func NewSchema(fields ...Field) (*Schema, error) {
	s, err := types.NewSchema(fields...)
	if err != nil {
		return nil, err
	}
	if err := validation.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadSchema reads and validates a YAML schema
func LoadSchema(r io.Reader) (*Schema, error) {
	s, err := types.DecodeSchema(r)
	if err != nil {
		return nil, err
	}
	if err := validation.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Option configures a Manager
type Option func(*connection.Options)

// WithStrict makes malformed query text an error instead of no filter
func WithStrict(strict bool) Option {
	return func(o *connection.Options) { o.Strict = strict }
}

// WithDefaultLimit sets the page size used when neither first nor last is given
func WithDefaultLimit(n int) Option {
	return func(o *connection.Options) { o.DefaultLimit = n }
}

// WithMaxLimit caps the page size
func WithMaxLimit(n int) Option {
	return func(o *connection.Options) { o.MaxLimit = n }
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger zerolog.Logger) Option {
	return func(o *connection.Options) { o.Logger = &logger }
}

// Manager is the entry point for connection requests. It holds no per-request
// state and is safe for concurrent use.
type Manager struct {
	store Store
	opts  connection.Options
}

// New creates a Manager reading from store
func New(store Store, opts ...Option) *Manager {
	m := &Manager{store: store}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

// Find returns one page of the records matching the request. extra is an
// optional filter applied on top of the request's own filters.
func (m *Manager) Find(ctx context.Context, schema *Schema, args Args, extra filter.Node) (*Connection, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	return connection.NewBuilder(m.store, schema, args, extra, m.opts).Build(ctx)
}
