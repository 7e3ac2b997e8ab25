package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arthur-debert/nanoquery/types"
)

var pathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate checks the schema for consistency
func Validate(s *types.Schema) error {
	if s == nil || s.Len() == 0 {
		return fmt.Errorf("at least one field must be declared")
	}

	seen := make(map[string]bool)
	for _, f := range s.Fields() {
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true

		if err := validateField(f); err != nil {
			return err
		}
	}

	return nil
}

func validateField(f types.Field) error {
	if f.Name == "" {
		return fmt.Errorf("field name cannot be empty")
	}

	// Field names must be addressable from query text
	if !IsValidPath(f.Name) {
		return fmt.Errorf("field %s: name must be an identifier or dotted path", f.Name)
	}
	if IsReservedWord(f.Name) {
		return fmt.Errorf("'%s' is a reserved word and cannot name a field", f.Name)
	}

	switch f.Type {
	case types.String, types.Number, types.BigInt, types.Boolean, types.Date:
	default:
		return fmt.Errorf("invalid value type %d for %s", f.Type, f.Name)
	}

	if f.Name == types.IDField {
		if f.Replace != nil {
			return fmt.Errorf("field %s: the identity field cannot be renamed or transformed", f.Name)
		}
		if f.Array {
			return fmt.Errorf("field %s: the identity field cannot be an array", f.Name)
		}
	}

	if f.Fulltext && f.Type != types.String {
		return fmt.Errorf("field %s: fulltext fields must be of type string, got %s", f.Name, f.Type)
	}

	if f.Sortable && f.Array {
		return fmt.Errorf("field %s: array fields cannot be sortable", f.Name)
	}

	switch r := f.Replace.(type) {
	case nil:
	case types.Rename:
		if r.Path == "" {
			return fmt.Errorf("field %s: rename path cannot be empty", f.Name)
		}
		if !IsValidPath(r.Path) {
			return fmt.Errorf("field %s: rename path '%s' contains invalid characters", f.Name, r.Path)
		}
	case types.Transform:
		if r.Fn == nil {
			return fmt.Errorf("field %s: transform function cannot be nil", f.Name)
		}
		if f.Sortable {
			return fmt.Errorf("field %s: transformed fields cannot be sortable", f.Name)
		}
	default:
		return fmt.Errorf("field %s: unsupported replacement %T", f.Name, f.Replace)
	}

	return nil
}

// IsValidPath checks that a name is an identifier or a dotted path of identifiers
func IsValidPath(name string) bool {
	return pathPattern.MatchString(name)
}

// IsReservedWord checks if a name is a query keyword or literal
func IsReservedWord(name string) bool {
	switch name {
	case "AND", "OR", "NOT":
		return true
	}
	switch strings.ToLower(name) {
	case "true", "false", "null":
		return true
	}
	return false
}
