// Package schema describes which index fields are queried, which are returned,
// and how returned fields map onto the rendered result card.
package schema

import (
	"fmt"

	"github.com/kailas-cloud/cvsearch/internal/domain"
)

// Field names of the Common Voice transcription index.
const (
	GeneratedText = "generated_text"
	OriginalText  = "original_text"
	Duration      = "duration"
	Age           = "age"
	Gender        = "gender"
	Accent        = "accent"
	Path          = "path"
)

// Field declares one index field and its role in queries.
type Field struct {
	name       string
	searchable bool
	result     bool
	boost      float64
}

// NewField validates and creates a Field. A field must be searchable, returned, or both.
func NewField(name string, searchable, result bool, boost float64) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("%w: field name is required", domain.ErrInvalidSchema)
	}
	if !searchable && !result {
		return Field{}, fmt.Errorf("%w: field %q is neither searchable nor returned", domain.ErrInvalidSchema, name)
	}
	if boost < 0 {
		return Field{}, fmt.Errorf("%w: field %q has negative boost", domain.ErrInvalidSchema, name)
	}
	return Field{name: name, searchable: searchable, result: result, boost: boost}, nil
}

// Name returns the index field name.
func (f Field) Name() string { return f.name }

// Searchable reports whether the field is matched against the query text.
func (f Field) Searchable() bool { return f.searchable }

// Result reports whether the field is returned with each hit.
func (f Field) Result() bool { return f.result }

// Boost returns the query-time weight; 0 means engine default.
func (f Field) Boost() float64 { return f.boost }

// SearchTerm returns the field reference used in a multi-field query, e.g. "accent^2".
func (f Field) SearchTerm() string {
	if f.boost == 0 || f.boost == 1 {
		return f.name
	}
	return fmt.Sprintf("%s^%g", f.name, f.boost)
}

// Schema is the ordered query-shape descriptor.
type Schema struct {
	fields []Field
}

// New creates a Schema. Names must be unique and at least one field must be searchable and one returned.
func New(fields []Field) (Schema, error) {
	seen := make(map[string]struct{}, len(fields))
	var searchable, result int
	for _, f := range fields {
		if _, dup := seen[f.name]; dup {
			return Schema{}, fmt.Errorf("%w: duplicate field %q", domain.ErrInvalidSchema, f.name)
		}
		seen[f.name] = struct{}{}
		if f.searchable {
			searchable++
		}
		if f.result {
			result++
		}
	}
	if searchable == 0 {
		return Schema{}, fmt.Errorf("%w: no searchable fields", domain.ErrInvalidSchema)
	}
	if result == 0 {
		return Schema{}, fmt.Errorf("%w: no result fields", domain.ErrInvalidSchema)
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return Schema{fields: out}, nil
}

// Default returns the transcription search shape: every displayed field is returned,
// and the text plus speaker attributes are searchable.
func Default() Schema {
	return Schema{fields: []Field{
		{name: GeneratedText, searchable: true, result: true},
		{name: Duration, result: true},
		{name: Age, searchable: true, result: true},
		{name: Gender, searchable: true, result: true},
		{name: Accent, searchable: true, result: true},
	}}
}

// Fields returns a copy of all fields in declaration order.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// SearchFields returns the searchable fields in declaration order.
func (s Schema) SearchFields() []Field {
	var out []Field
	for _, f := range s.fields {
		if f.searchable {
			out = append(out, f)
		}
	}
	return out
}

// ResultFieldNames returns the names of returned fields in declaration order.
func (s Schema) ResultFieldNames() []string {
	var out []string
	for _, f := range s.fields {
		if f.result {
			out = append(out, f.name)
		}
	}
	return out
}

// IsResultField reports whether name is returned with each hit.
func (s Schema) IsResultField(name string) bool {
	for _, f := range s.fields {
		if f.name == name {
			return f.result
		}
	}
	return false
}

// Validate checks that every field the template displays is a result field.
func (s Schema) Validate(t Template) error {
	for _, name := range t.FieldNames() {
		if !s.IsResultField(name) {
			return fmt.Errorf("%w: template field %q is not a result field", domain.ErrInvalidSchema, name)
		}
	}
	return nil
}
