package types

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Schema is the per-connection field declaration. It is built once and is
// read-only afterwards, so a single Schema may be shared by concurrent requests.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema creates a schema from field declarations. Names must be non-empty
// and unique.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d: name cannot be empty", i)
		}
		if _, exists := s.index[f.Name]; exists {
			return nil, fmt.Errorf("duplicate field name: %s", f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// Field returns the declaration for name
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Fields returns all declarations in declaration order
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of declared fields
func (s *Schema) Len() int {
	return len(s.fields)
}

// Searchable returns the fields taking part in global terms, in declaration order
func (s *Schema) Searchable() []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Searchable {
			out = append(out, f)
		}
	}
	return out
}

// Filterable returns the field if it is declared and filterable
func (s *Schema) Filterable(name string) (Field, error) {
	f, ok := s.Field(name)
	if !ok {
		return Field{}, &UnknownFieldError{Field: name}
	}
	if !f.Filterable {
		return Field{}, &UnknownFieldError{Field: name, Reason: "field is not filterable"}
	}
	return f, nil
}

// Sortable returns the field if it is declared and sortable
func (s *Schema) Sortable(name string) (Field, error) {
	f, ok := s.Field(name)
	if !ok {
		return Field{}, &UnknownFieldError{Field: name}
	}
	if !f.Sortable {
		return Field{}, &UnknownFieldError{Field: name, Reason: "field is not sortable"}
	}
	return f, nil
}

// fieldConfig is the YAML form of a field. Transforms cannot be expressed in
// files and are attached in code.
type fieldConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Array      bool   `yaml:"array"`
	Fulltext   bool   `yaml:"fulltext"`
	Searchable bool   `yaml:"searchable"`
	Filterable bool   `yaml:"filterable"`
	Sortable   bool   `yaml:"sortable"`
	Rename     string `yaml:"rename"`
}

type schemaConfig struct {
	Fields []fieldConfig `yaml:"fields"`
}

// DecodeSchema reads a YAML schema document:
//
//	fields:
//	  - name: title
//	    type: string
//	    searchable: true
//	    filterable: true
//	  - name: author
//	    rename: author.name
func DecodeSchema(r io.Reader) (*Schema, error) {
	var cfg schemaConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	fields := make([]Field, 0, len(cfg.Fields))
	for _, fc := range cfg.Fields {
		vt, err := ParseValueType(fc.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fc.Name, err)
		}
		f := Field{
			Name:       fc.Name,
			Type:       vt,
			Array:      fc.Array,
			Fulltext:   fc.Fulltext,
			Searchable: fc.Searchable,
			Filterable: fc.Filterable,
			Sortable:   fc.Sortable,
		}
		if fc.Rename != "" {
			f.Replace = Rename{Path: fc.Rename}
		}
		fields = append(fields, f)
	}
	return NewSchema(fields...)
}
