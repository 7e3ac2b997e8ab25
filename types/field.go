package types

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
)

// IDField is the identity field every record carries. It is the final
// tie-break of every sort order and the anchor of every cursor.
const IDField = "id"

// ValueType is the declared type of a schema field
type ValueType int

const (
	// String fields compare as text
	String ValueType = iota
	// Number fields hold floating point values
	Number
	// BigInt fields hold integers of arbitrary precision
	BigInt
	// Boolean fields hold true/false
	Boolean
	// Date fields hold timestamps
	Date
)

// String returns the string representation of the ValueType
func (vt ValueType) String() string {
	switch vt {
	case String:
		return "string"
	case Number:
		return "number"
	case BigInt:
		return "bigint"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	default:
		return "unknown"
	}
}

// ParseValueType converts a type name as written in schema files into a ValueType
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "text":
		return String, nil
	case "number", "float":
		return Number, nil
	case "bigint", "int", "integer":
		return BigInt, nil
	case "boolean", "bool":
		return Boolean, nil
	case "date", "datetime", "time":
		return Date, nil
	default:
		return String, fmt.Errorf("unknown value type: %q", s)
	}
}

// TransformFunc builds the predicate for a field in place of the generic one.
// It receives the field metadata, the operator the query asked for and the
// already coerced value(s). Returning nil drops the predicate.
type TransformFunc func(field Field, op filter.Operator, values []any) filter.Node

// Replacement changes how a field is addressed in the store. It is either a
// Rename or a Transform, never both.
type Replacement interface {
	replacement()
}

// Rename substitutes the field name with a (possibly dotted) store path
type Rename struct {
	Path string
}

// Transform delegates predicate construction to a callback
type Transform struct {
	Fn TransformFunc
}

func (Rename) replacement()    {}
func (Transform) replacement() {}

// Field declares one field of a connection schema
type Field struct {
	// Name is the name used in query text, orderBy and request filters
	Name string

	// Type is the declared value type; query values are coerced to it
	Type ValueType

	// Array fields hold lists; equality terms against them become CONTAINS
	Array bool

	// Fulltext fields are matched with FULLTEXT instead of EQ
	Fulltext bool

	// Searchable fields take part in unscoped (global) terms
	Searchable bool

	// Filterable fields may be referenced by scoped terms and request filters
	Filterable bool

	// Sortable fields may be used as orderBy
	Sortable bool

	// Replace optionally renames or transforms the field
	Replace Replacement
}

// StorePath returns the path used to address the field in the store
func (f Field) StorePath() string {
	if r, ok := f.Replace.(Rename); ok && r.Path != "" {
		return r.Path
	}
	return f.Name
}

// Transformer returns the transform callback if the field declares one
func (f Field) Transformer() (TransformFunc, bool) {
	t, ok := f.Replace.(Transform)
	if !ok || t.Fn == nil {
		return nil, false
	}
	return t.Fn, true
}
