package types

import (
	"context"
	"fmt"
	"strings"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
)

// Direction is a sort direction
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// ParseDirection accepts ASC/DESC in any case; empty means ascending
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC", "ASCENDING":
		return Ascending, nil
	case "DESC", "DESCENDING":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("invalid sort direction: %q", s)
	}
}

// Reverse returns the opposite direction
func (d Direction) Reverse() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// SortKey is a single ORDER BY clause against a store path
type SortKey struct {
	Field     string
	Direction Direction
}

// FindOptions configures a bounded fetch
type FindOptions struct {
	// Filter restricts the matching records; nil matches everything
	Filter filter.Node

	// Sort lists the sort keys in priority order
	Sort []SortKey

	// Limit is the maximum number of records to return; zero means no limit
	Limit int

	// Offset skips that many records after sorting
	Offset int
}

// Store is the storage collaborator the connection builder reads from.
// Implementations translate the filter tree into their native query facility.
type Store interface {
	// Find returns the records matching opts.Filter in opts.Sort order
	Find(ctx context.Context, opts FindOptions) ([]Record, error)

	// Count returns the number of records matching f
	Count(ctx context.Context, f filter.Node) (int, error)
}
