// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// fileField is the on-disk declaration of one field in a schema
// override file.
type fileField struct {
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Fields []fileField `json:"fields,omitempty"`
}

// fileSchema is the top-level shape of a schema override file.
type fileSchema struct {
	Fields []fileField `json:"fields"`
}

// LoadFile reads a schema override from a JSONC file. Comments and
// trailing commas are allowed. The reserved key and URL fields are
// prepended automatically when the file does not declare them, since
// they are invariant and declaring them by hand is pure noise.
//
// File shape:
//
//	{
//	  // caption sidecar
//	  "fields": [
//	    {"name": "json", "type": "metadata", "fields": [
//	      {"name": "caption", "type": "text"},
//	    ]},
//	    {"name": "jpg", "type": "image"},
//	  ],
//	}
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a schema from JSONC document bytes. See [LoadFile] for
// the document shape.
func Parse(data []byte) (*Schema, error) {
	var file fileSchema
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing schema document: %w", err)
	}
	if len(file.Fields) == 0 {
		return nil, fmt.Errorf("schema document declares no fields")
	}

	declared := make(map[string]bool, len(file.Fields))
	for _, field := range file.Fields {
		declared[field.Name] = true
	}

	fields := make([]Field, 0, len(file.Fields)+2)
	if !declared[KeyField] {
		fields = append(fields, Field{Name: KeyField, Type: TypeText})
	}
	if !declared[URLField] {
		fields = append(fields, Field{Name: URLField, Type: TypeText})
	}

	for _, raw := range file.Fields {
		field, err := convertFileField(raw, false)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	return New(fields)
}

func convertFileField(raw fileField, nested bool) (Field, error) {
	t, err := ParseType(raw.Type)
	if err != nil {
		return Field{}, fmt.Errorf("field %q: %w", raw.Name, err)
	}

	field := Field{Name: raw.Name, Type: t}

	if len(raw.Fields) > 0 {
		if nested {
			return Field{}, fmt.Errorf("field %q: metadata nests only one level deep", raw.Name)
		}
		if t != TypeMetadata {
			return Field{}, fmt.Errorf("field %q: only metadata fields declare sub-fields", raw.Name)
		}
		for _, sub := range raw.Fields {
			subField, err := convertFileField(sub, true)
			if err != nil {
				return Field{}, err
			}
			field.Nested = append(field.Nested, subField)
		}
	}

	return field, nil
}
