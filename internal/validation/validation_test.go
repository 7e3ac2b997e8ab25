package validation_test

import (
	"strings"
	"testing"

	"github.com/arthur-debert/nanoquery/internal/validation"
	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

func noop(types.Field, filter.Operator, []any) filter.Node { return nil }

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		fields  []types.Field
		wantErr string
	}{
		{
			name:    "empty schema",
			fields:  nil,
			wantErr: "at least one field",
		},
		{
			name: "valid schema",
			fields: []types.Field{
				{Name: "id", Filterable: true, Sortable: true},
				{Name: "title", Searchable: true, Filterable: true, Sortable: true},
				{Name: "body", Fulltext: true, Searchable: true},
				{Name: "tags", Array: true, Filterable: true},
				{Name: "author", Filterable: true, Sortable: true, Replace: types.Rename{Path: "author.name"}},
				{Name: "mine", Type: types.Boolean, Filterable: true, Replace: types.Transform{Fn: noop}},
			},
		},
		{
			name:    "dotted name",
			fields:  []types.Field{{Name: "meta.owner"}},
			wantErr: "",
		},
		{
			name:    "name with spaces",
			fields:  []types.Field{{Name: "my field"}},
			wantErr: "identifier or dotted path",
		},
		{
			name:    "name starting with digit",
			fields:  []types.Field{{Name: "1st"}},
			wantErr: "identifier or dotted path",
		},
		{
			name:    "keyword",
			fields:  []types.Field{{Name: "OR"}},
			wantErr: "reserved word",
		},
		{
			name:    "literal",
			fields:  []types.Field{{Name: "Null"}},
			wantErr: "reserved word",
		},
		{
			name:    "bad type",
			fields:  []types.Field{{Name: "x", Type: types.ValueType(99)}},
			wantErr: "invalid value type",
		},
		{
			name:    "renamed id",
			fields:  []types.Field{{Name: "id", Replace: types.Rename{Path: "uuid"}}},
			wantErr: "identity field cannot be renamed",
		},
		{
			name:    "array id",
			fields:  []types.Field{{Name: "id", Array: true}},
			wantErr: "identity field cannot be an array",
		},
		{
			name:    "fulltext number",
			fields:  []types.Field{{Name: "n", Type: types.Number, Fulltext: true}},
			wantErr: "fulltext fields must be of type string",
		},
		{
			name:    "sortable array",
			fields:  []types.Field{{Name: "tags", Array: true, Sortable: true}},
			wantErr: "array fields cannot be sortable",
		},
		{
			name:    "empty rename",
			fields:  []types.Field{{Name: "a", Replace: types.Rename{}}},
			wantErr: "rename path cannot be empty",
		},
		{
			name:    "bad rename",
			fields:  []types.Field{{Name: "a", Replace: types.Rename{Path: "a..b"}}},
			wantErr: "invalid characters",
		},
		{
			name:    "nil transform",
			fields:  []types.Field{{Name: "a", Replace: types.Transform{}}},
			wantErr: "transform function cannot be nil",
		},
		{
			name:    "sortable transform",
			fields:  []types.Field{{Name: "a", Sortable: true, Replace: types.Transform{Fn: noop}}},
			wantErr: "transformed fields cannot be sortable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := types.NewSchema(tt.fields...)
			if err != nil {
				t.Fatalf("NewSchema failed: %v", err)
			}
			err = validation.Validate(schema)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	if err := validation.Validate(nil); err == nil {
		t.Error("expected error for nil schema")
	}
}

func TestIsValidPath(t *testing.T) {
	valid := []string{"a", "_x", "author.name", "a1.b2.c3"}
	invalid := []string{"", ".a", "a.", "a..b", "a-b", "a b", "1a", "a.1"}
	for _, p := range valid {
		if !validation.IsValidPath(p) {
			t.Errorf("expected %q to be valid", p)
		}
	}
	for _, p := range invalid {
		if validation.IsValidPath(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}

func TestIsReservedWord(t *testing.T) {
	for _, w := range []string{"AND", "OR", "NOT", "true", "FALSE", "null"} {
		if !validation.IsReservedWord(w) {
			t.Errorf("expected %q to be reserved", w)
		}
	}
	for _, w := range []string{"and", "or", "not", "status"} {
		if validation.IsReservedWord(w) {
			t.Errorf("expected %q not to be reserved", w)
		}
	}
}
