// Package store provides Store implementations: an in-memory store, a JSON
// file store shared between processes through a file lock, and a SQL store
// that translates filter trees into SQL.
package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

// MemoryStore keeps records in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []types.Record
}

// NewMemoryStore creates a store holding records
func NewMemoryStore(records []types.Record) *MemoryStore {
	s := &MemoryStore{}
	s.Insert(records...)
	return s
}

// Insert adds records to the store
func (s *MemoryStore) Insert(records ...types.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records = append(s.records, maps.Clone(r))
	}
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Find implements types.Store
func (s *MemoryStore) Find(ctx context.Context, opts types.FindOptions) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return execute(s.records, opts), nil
}

// Count implements types.Store
func (s *MemoryStore) Count(ctx context.Context, f filter.Node) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return count(s.records, f), nil
}

// execute runs a query against records: filter, then sort, then offset and
// limit. The result holds copies of the matching records.
func execute(records []types.Record, opts types.FindOptions) []types.Record {
	result := make([]types.Record, 0, len(records))
	for _, r := range records {
		if filter.Match(opts.Filter, r.Lookup) {
			result = append(result, maps.Clone(r))
		}
	}

	if len(opts.Sort) > 0 {
		sortRecords(result, opts.Sort)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []types.Record{}
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

func count(records []types.Record, f filter.Node) int {
	n := 0
	for _, r := range records {
		if filter.Match(f, r.Lookup) {
			n++
		}
	}
	return n
}

// sortRecords orders records by the sort keys. Nulls come before every value,
// as in SQL stores.
func sortRecords(records []types.Record, keys []types.SortKey) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			vi, _ := records[i].Lookup(key.Field)
			vj, _ := records[j].Lookup(key.Field)

			c := compareValues(vi, vj)
			if c == 0 {
				continue
			}
			if key.Direction == types.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues is a total order over record values: nil first, then values
// that compare naturally, then incomparable values ranked by type and text
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c, ok := filter.Compare(a, b); ok {
		return c
	}
	ta, tb := fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)
	if ta != tb {
		if ta < tb {
			return -1
		}
		return 1
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
