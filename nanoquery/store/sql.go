package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/spf13/cast"

	"github.com/arthur-debert/nanoquery/internal/logging"
	"github.com/arthur-debert/nanoquery/internal/validation"
	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

// sqlTimeLayout is fixed width so that text comparison orders dates
// chronologically
const sqlTimeLayout = "2006-01-02T15:04:05.000000000Z"

// column describes how a store path is stored in the table
type column struct {
	path  string
	typ   types.ValueType
	array bool
}

// SQLStore reads records from one table. Every store path of the schema is a
// column named after the path; array fields hold JSON text. The SQL dialect
// is SQLite's.
type SQLStore struct {
	db      *sql.DB
	table   string
	columns []column
	byPath  map[string]column
	sq      squirrel.StatementBuilderType
}

// NewSQLStore creates a store over table. Transformed fields have no column.
func NewSQLStore(db *sql.DB, table string, schema *types.Schema) (*SQLStore, error) {
	if !validation.IsValidPath(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	s := &SQLStore{
		db:     db,
		table:  table,
		byPath: make(map[string]column),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	idCol := column{path: types.IDField, typ: types.String}
	if f, ok := schema.Field(types.IDField); ok {
		idCol.typ = f.Type
	}
	s.addColumn(idCol)

	for _, f := range schema.Fields() {
		if _, ok := f.Transformer(); ok || f.Name == types.IDField {
			continue
		}
		path := f.StorePath()
		if !validation.IsValidPath(path) {
			return nil, fmt.Errorf("field %s: invalid column name %q", f.Name, path)
		}
		if _, exists := s.byPath[path]; exists {
			continue
		}
		s.addColumn(column{path: path, typ: f.Type, array: f.Array})
	}
	return s, nil
}

func (s *SQLStore) addColumn(c column) {
	s.columns = append(s.columns, c)
	s.byPath[c.path] = c
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlType picks the declared column type. Big integers get BLOB affinity so
// that values beyond 64 bits, stored as text, are not converted to REAL.
func (c column) sqlType() string {
	if c.array {
		return "TEXT"
	}
	switch c.typ {
	case types.Number:
		return "REAL"
	case types.BigInt:
		return "BLOB"
	case types.Boolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// CreateTable creates the table if it does not exist
func (s *SQLStore) CreateTable(ctx context.Context) error {
	defs := make([]string, len(s.columns))
	for i, c := range s.columns {
		defs[i] = quoteIdent(c.path) + " " + c.sqlType()
		if c.path == types.IDField {
			defs[i] += " PRIMARY KEY"
		}
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(s.table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Insert writes records in one transaction. Keys that are not columns are
// ignored; missing columns are NULL.
func (s *SQLStore) Insert(ctx context.Context, records ...types.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = quoteIdent(c.path)
	}

	for _, r := range records {
		values := make([]any, len(s.columns))
		for i, c := range s.columns {
			v, _ := r.Lookup(c.path)
			arg, err := c.toSQL(v)
			if err != nil {
				return fmt.Errorf("record %v: column %s: %w", r.ID(), c.path, err)
			}
			values[i] = arg
		}
		query, args, err := s.sq.Insert(quoteIdent(s.table)).Columns(names...).Values(values...).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert record %v: %w", r.ID(), err)
		}
	}
	return tx.Commit()
}

// Find implements types.Store
func (s *SQLStore) Find(ctx context.Context, opts types.FindOptions) ([]types.Record, error) {
	log := logging.GetLogger("store.sql")

	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = quoteIdent(c.path)
	}
	q := s.sq.Select(names...).From(quoteIdent(s.table))

	if opts.Filter != nil {
		where, err := s.translate(opts.Filter)
		if err != nil {
			return nil, err
		}
		q = q.Where(where)
	}
	for _, key := range opts.Sort {
		if _, ok := s.byPath[key.Field]; !ok {
			return nil, fmt.Errorf("cannot sort by unknown column %q", key.Field)
		}
		dir := "ASC"
		if key.Direction == types.Descending {
			dir = "DESC"
		}
		q = q.OrderBy(quoteIdent(key.Field) + " " + dir)
	}
	if opts.Limit > 0 {
		q = q.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			q = q.Limit(uint64(1<<63 - 1))
		}
		q = q.Offset(uint64(opts.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	log.Debug().Str("sql", query).Interface("args", args).Msg("find")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Record
	for rows.Next() {
		raw := make([]any, len(s.columns))
		ptrs := make([]any, len(s.columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec := make(types.Record, len(s.columns))
		for i, c := range s.columns {
			v, err := c.fromSQL(raw[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c.path, err)
			}
			rec[c.path] = v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}

// Count implements types.Store
func (s *SQLStore) Count(ctx context.Context, f filter.Node) (int, error) {
	q := s.sq.Select("COUNT(*)").From(quoteIdent(s.table))
	if f != nil {
		where, err := s.translate(f)
		if err != nil {
			return 0, err
		}
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", s.table, err)
	}
	return n, nil
}

// translate maps a filter tree onto squirrel conditions. NOT wraps its
// operand in COALESCE so that a NULL comparison negates to true, as it does
// in memory.
func (s *SQLStore) translate(n filter.Node) (squirrel.Sqlizer, error) {
	switch t := n.(type) {
	case *filter.AndNode:
		and := squirrel.And{}
		for _, c := range t.Children() {
			sub, err := s.translate(c)
			if err != nil {
				return nil, err
			}
			and = append(and, sub)
		}
		return and, nil
	case *filter.OrNode:
		or := squirrel.Or{}
		for _, c := range t.Children() {
			sub, err := s.translate(c)
			if err != nil {
				return nil, err
			}
			or = append(or, sub)
		}
		return or, nil
	case *filter.NotNode:
		inner, err := s.translate(t.Child())
		if err != nil {
			return nil, err
		}
		query, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return squirrel.Expr("NOT COALESCE(("+query+"), 0)", args...), nil
	case *filter.Predicate:
		return s.predicate(t)
	}
	return nil, fmt.Errorf("unsupported filter node %T", n)
}

func (s *SQLStore) predicate(p *filter.Predicate) (squirrel.Sqlizer, error) {
	c, ok := s.byPath[p.Field()]
	if !ok {
		return nil, fmt.Errorf("cannot filter by unknown column %q", p.Field())
	}
	col := quoteIdent(c.path)

	args := make([]any, 0, len(p.Values()))
	for _, v := range p.Values() {
		arg, err := c.scalarToSQL(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.path, err)
		}
		args = append(args, arg)
	}

	switch p.Operator() {
	case filter.OpEq:
		return squirrel.Eq{col: args[0]}, nil
	case filter.OpNe:
		if args[0] == nil {
			return squirrel.NotEq{col: nil}, nil
		}
		return squirrel.Or{squirrel.NotEq{col: args[0]}, squirrel.Eq{col: nil}}, nil
	case filter.OpLt, filter.OpLte, filter.OpGt, filter.OpGte:
		if args[0] == nil {
			return squirrel.Expr("1=0"), nil
		}
		switch p.Operator() {
		case filter.OpLt:
			return squirrel.Lt{col: args[0]}, nil
		case filter.OpLte:
			return squirrel.LtOrEq{col: args[0]}, nil
		case filter.OpGt:
			return squirrel.Gt{col: args[0]}, nil
		default:
			return squirrel.GtOrEq{col: args[0]}, nil
		}
	case filter.OpIn:
		var values []any
		hasNull := false
		for _, a := range args {
			if a == nil {
				hasNull = true
				continue
			}
			values = append(values, a)
		}
		in := squirrel.Eq{col: values}
		if hasNull {
			return squirrel.Or{in, squirrel.Eq{col: nil}}, nil
		}
		return in, nil
	case filter.OpContains:
		and := squirrel.And{}
		for _, a := range args {
			and = append(and, squirrel.Expr("EXISTS (SELECT 1 FROM json_each("+col+") WHERE json_each.value = ?)", a))
		}
		return and, nil
	case filter.OpLike:
		pattern, _ := p.Value().(string)
		return squirrel.Like{col: pattern}, nil
	case filter.OpFulltext:
		text, _ := p.Value().(string)
		and := squirrel.And{}
		for _, word := range strings.Fields(text) {
			and = append(and, squirrel.Expr(col+` LIKE ? ESCAPE '\'`, "%"+escapeLike(word)+"%"))
		}
		return and, nil
	}
	return nil, fmt.Errorf("unsupported operator %s", p.Operator())
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// toSQL converts a record value for storage
func (c column) toSQL(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if !c.array {
		return c.scalarToSQL(v)
	}
	elems, ok := v.([]any)
	if !ok {
		var err error
		if elems, err = cast.ToSliceE(v); err != nil {
			return nil, fmt.Errorf("expected a list, got %T", v)
		}
	}
	converted := make([]any, len(elems))
	for i, e := range elems {
		arg, err := c.scalarToSQL(e)
		if err != nil {
			return nil, err
		}
		converted[i] = arg
	}
	encoded, err := json.Marshal(converted)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// scalarToSQL converts a single value to a driver value. Integers outside
// the 64-bit range are stored as text.
func (c column) scalarToSQL(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t.UTC().Format(sqlTimeLayout), nil
	case *big.Int:
		if t.IsInt64() {
			return t.Int64(), nil
		}
		return t.String(), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		if f, err := t.Float64(); err == nil {
			return f, nil
		}
		return t.String(), nil
	case string:
		if c.typ == types.Date {
			d, err := cast.ToTimeInDefaultLocationE(t, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("invalid date %q", t)
			}
			return d.UTC().Format(sqlTimeLayout), nil
		}
		return t, nil
	case bool, int64, float64:
		return t, nil
	case int, int8, int16, int32, uint8, uint16, uint32:
		return cast.ToInt64E(t)
	case uint, uint64:
		u := cast.ToUint64(t)
		if u > 1<<63-1 {
			return new(big.Int).SetUint64(u).String(), nil
		}
		return int64(u), nil
	case float32:
		return float64(t), nil
	}
	return fmt.Sprint(v), nil
}

// fromSQL converts a scanned value back to the record representation
func (c column) fromSQL(v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil, nil
	}
	if c.array {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected JSON text, got %T", v)
		}
		var elems []any
		if err := json.Unmarshal([]byte(s), &elems); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		for i, e := range elems {
			conv, err := c.scalarFromSQL(e)
			if err != nil {
				return nil, err
			}
			elems[i] = conv
		}
		return elems, nil
	}
	return c.scalarFromSQL(v)
}

func (c column) scalarFromSQL(v any) (any, error) {
	switch c.typ {
	case types.Date:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			if d, err := time.Parse(sqlTimeLayout, t); err == nil {
				return d, nil
			}
			d, err := cast.ToTimeInDefaultLocationE(t, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("invalid date %q", t)
			}
			return d.UTC(), nil
		}
	case types.Boolean:
		switch t := v.(type) {
		case int64:
			return t != 0, nil
		case float64:
			return t != 0, nil
		}
	case types.BigInt:
		if s, ok := v.(string); ok {
			if n, ok := new(big.Int).SetString(s, 10); ok {
				return n, nil
			}
		}
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			return int64(f), nil
		}
	}
	return v, nil
}
