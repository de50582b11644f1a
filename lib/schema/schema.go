// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shardstream/shardstream/lib/shard"
)

// Reserved field names, always the first two fields of any schema.
const (
	// KeyField holds the example's stem.
	KeyField = "__key__"

	// URLField holds the identifier of the shard the example came
	// from.
	URLField = "__url__"
)

// Field declares one dataset field.
type Field struct {
	// Name is the field name. For data fields this is the extension
	// qualifier verbatim.
	Name string

	// Type is the field's semantic type.
	Type SemanticType

	// Nested declares the sub-schema of a metadata field. Only
	// meaningful when Type is TypeMetadata; nested fields may use
	// the scalar types in addition to TypeText.
	Nested []Field
}

// Schema is an ordered set of fields, unique by name, beginning with
// the reserved key and URL fields. Immutable once built; safe for
// concurrent readers.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New builds a schema from declared fields. The reserved fields must
// be present, in either order, before any data field; names must be
// unique; nested scalar types must not appear at the top level.
func New(fields []Field) (*Schema, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("schema needs at least the reserved fields %s and %s", KeyField, URLField)
	}

	index := make(map[string]int, len(fields))
	for i, field := range fields {
		if field.Name == "" {
			return nil, fmt.Errorf("field %d has an empty name", i)
		}
		if _, dup := index[field.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", field.Name)
		}
		if field.Type.Scalar() {
			return nil, fmt.Errorf("field %q: scalar type %s is only valid inside metadata", field.Name, field.Type)
		}
		if field.Type == TypeInvalid {
			return nil, fmt.Errorf("field %q has no semantic type", field.Name)
		}
		if field.Type != TypeMetadata && len(field.Nested) > 0 {
			return nil, fmt.Errorf("field %q: nested fields require type metadata, not %s", field.Name, field.Type)
		}
		if field.Type == TypeMetadata {
			if err := validateNested(field.Name, field.Nested); err != nil {
				return nil, err
			}
		}
		index[field.Name] = i
	}

	for _, reserved := range []string{KeyField, URLField} {
		i, ok := index[reserved]
		if !ok {
			return nil, fmt.Errorf("schema is missing reserved field %s", reserved)
		}
		if i > 1 {
			return nil, fmt.Errorf("reserved field %s must precede data fields", reserved)
		}
		if fields[i].Type != TypeText {
			return nil, fmt.Errorf("reserved field %s must have type text, not %s", reserved, fields[i].Type)
		}
	}

	return &Schema{fields: fields, index: index}, nil
}

func validateNested(parent string, nested []Field) error {
	seen := make(map[string]struct{}, len(nested))
	for _, field := range nested {
		if field.Name == "" {
			return fmt.Errorf("field %q: nested field has an empty name", parent)
		}
		if _, dup := seen[field.Name]; dup {
			return fmt.Errorf("field %q: duplicate nested field %q", parent, field.Name)
		}
		seen[field.Name] = struct{}{}
		switch field.Type {
		case TypeText, TypeInt, TypeFloat, TypeBool:
		default:
			return fmt.Errorf("field %q: nested field %q has non-scalar type %s", parent, field.Name, field.Type)
		}
	}
	return nil
}

// Fields returns the schema's fields in declaration order. The slice
// is owned by the schema; callers must not modify it.
func (s *Schema) Fields() []Field {
	return s.fields
}

// Lookup returns the field declared under name.
func (s *Schema) Lookup(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Len returns the number of declared fields, reserved ones included.
func (s *Schema) Len() int {
	return len(s.fields)
}

// String renders the schema as a compact single-line summary, useful
// in logs and error messages.
func (s *Schema) String() string {
	var builder strings.Builder
	builder.WriteByte('{')
	for i, field := range s.fields {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(field.Name)
		builder.WriteByte(':')
		builder.WriteString(field.Type.String())
		if field.Type == TypeMetadata {
			builder.WriteByte('{')
			for j, nested := range field.Nested {
				if j > 0 {
					builder.WriteString(", ")
				}
				builder.WriteString(nested.Name)
				builder.WriteByte(':')
				builder.WriteString(nested.Type.String())
			}
			builder.WriteByte('}')
		}
	}
	builder.WriteByte('}')
	return builder.String()
}

// Infer builds the dataset schema from the first raw example of the
// first shard. Every qualifier present classifies per the dispatch
// table; metadata fields get a nested schema from their decoded object
// keys, sorted for determinism. The reserved fields are always
// prepended.
func Infer(example *shard.RawExample) (*Schema, error) {
	fields := make([]Field, 0, example.Len()+2)
	fields = append(fields,
		Field{Name: KeyField, Type: TypeText},
		Field{Name: URLField, Type: TypeText},
	)

	for _, qualifier := range example.Qualifiers() {
		field := Field{Name: qualifier, Type: Classify(qualifier)}
		if field.Type == TypeMetadata {
			data, _ := example.Bytes(qualifier)
			nested, err := inferNested(qualifier, data)
			if err != nil {
				return nil, fmt.Errorf("inferring schema for example %q: %w", example.Key, err)
			}
			field.Nested = nested
		}
		fields = append(fields, field)
	}

	return New(fields)
}

// inferNested decodes a metadata payload and derives nested fields
// from its top-level keys and their value kinds. Keys are sorted
// so inference is deterministic regardless of object encoding order.
func inferNested(qualifier string, data []byte) ([]Field, error) {
	object, err := DecodeObject(qualifier, data)
	if err != nil {
		return nil, fmt.Errorf("metadata field %q: %w", qualifier, err)
	}

	names := make([]string, 0, len(object))
	for name := range object {
		names = append(names, name)
	}
	sort.Strings(names)

	nested := make([]Field, 0, len(names))
	for _, name := range names {
		nested = append(nested, Field{Name: name, Type: scalarTypeOf(object[name])})
	}
	return nested, nil
}

// scalarTypeOf maps a decoded metadata value to its nested scalar
// type. Non-scalar values (arrays, nested objects, null) fall back to
// text, matching the loosest declared type rather than failing
// inference.
func scalarTypeOf(value any) SemanticType {
	switch v := value.(type) {
	case bool:
		return TypeBool
	case int64, uint64, int:
		return TypeInt
	case float64, float32:
		return TypeFloat
	case string:
		return TypeText
	case json.Number:
		if strings.ContainsAny(v.String(), ".eE") {
			return TypeFloat
		}
		return TypeInt
	default:
		return TypeText
	}
}
