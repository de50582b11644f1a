// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/shardstream/shardstream/lib/schema"
	"github.com/shardstream/shardstream/lib/shard"
)

// Materializer produces records conforming to one finalized schema.
// The per-field decode plan is validated once at construction and
// reused for every example, so per-record work is dispatch only.
// Safe for concurrent use: materialization has no mutable state.
type Materializer struct {
	schema   *schema.Schema
	decoders Decoders
	names    []string
}

// NewMaterializer validates the schema's decode plan and returns a
// materializer bound to it.
func NewMaterializer(s *schema.Schema, decoders Decoders) (*Materializer, error) {
	names := make([]string, len(s.Fields()))
	for i, field := range s.Fields() {
		names[i] = field.Name
		if field.Type == schema.TypeCompressedText {
			switch trailingSuffix(field.Name) {
			case "gz", "zst", "lz4":
			default:
				return nil, fmt.Errorf("field %q: no decompressor for suffix %q", field.Name, trailingSuffix(field.Name))
			}
		}
	}
	return &Materializer{schema: s, decoders: decoders, names: names}, nil
}

// Schema returns the schema the materializer is bound to.
func (m *Materializer) Schema() *schema.Schema {
	return m.schema
}

// Materialize produces the record for one raw example. Every declared
// field decodes or passes through per its semantic type; declared
// fields missing from the example become [Absent]; qualifiers not
// declared in the schema are dropped. Materializing the same example
// twice yields identical records.
func (m *Materializer) Materialize(example *shard.RawExample) (*Record, error) {
	values := make(map[string]Value, m.schema.Len())
	values[schema.KeyField] = Text(example.Key)
	values[schema.URLField] = Text(example.URL)

	for _, field := range m.schema.Fields() {
		if field.Name == schema.KeyField || field.Name == schema.URLField {
			continue
		}

		data, present := example.Bytes(field.Name)
		if !present {
			values[field.Name] = Absent
			continue
		}

		value, err := m.decodeField(field, data)
		if err != nil {
			return nil, &DecodeError{Field: field.Name, Key: example.Key, Err: err}
		}
		values[field.Name] = value
	}

	return &Record{names: m.names, values: values}, nil
}

func (m *Materializer) decodeField(field schema.Field, data []byte) (Value, error) {
	switch field.Type {
	case schema.TypeText:
		return decodeText(data)

	case schema.TypeCompressedText:
		inflated, err := inflate(field.Name, data)
		if err != nil {
			return nil, err
		}
		return decodeText(inflated)

	case schema.TypeMetadata:
		return m.decodeMetadata(field, data)

	case schema.TypeImage, schema.TypeAudio:
		return Encoded{Bytes: data, Format: trailingSuffix(field.Name), Media: field.Type}, nil

	case schema.TypeTensor:
		return m.decoders.tensor()(data)

	case schema.TypeBytes:
		return Bytes(data), nil

	default:
		return nil, fmt.Errorf("field type %s is not materializable", field.Type)
	}
}

// decodeMetadata decodes a structured object against the field's
// fixed nested schema: declared-but-missing nested keys become
// [Absent], keys not declared are ignored.
func (m *Materializer) decodeMetadata(field schema.Field, data []byte) (Value, error) {
	object, err := schema.DecodeObject(field.Name, data)
	if err != nil {
		return nil, err
	}

	metadata := make(Metadata, len(field.Nested))
	for _, nested := range field.Nested {
		raw, present := object[nested.Name]
		if !present || raw == nil {
			metadata[nested.Name] = Absent
			continue
		}
		value, err := scalarValue(raw)
		if err != nil {
			return nil, fmt.Errorf("nested field %q: %w", nested.Name, err)
		}
		metadata[nested.Name] = value
	}
	return metadata, nil
}

// scalarValue converts a decoded metadata value into its record
// representation.
func scalarValue(raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return Text(v), nil
	case bool:
		return Bool(v), nil
	case int64:
		return Int(v), nil
	case uint64:
		return Int(v), nil
	case float64:
		return Float(v), nil
	case json.Number:
		if !strings.ContainsAny(v.String(), ".eE") {
			i, err := v.Int64()
			if err == nil {
				return Int(i), nil
			}
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", v.String(), err)
		}
		return Float(f), nil
	default:
		// Arrays and nested objects round-trip through JSON text,
		// the loosest representation the nested schema declares.
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("value of type %T: %w", raw, err)
		}
		return Text(encoded), nil
	}
}

// decodeText validates UTF-8 and normalizes Windows line endings.
func decodeText(data []byte) (Value, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("content is not valid UTF-8")
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return Text(text), nil
}

// inflate decompresses a compressed-text payload. The codec comes
// from the qualifier's trailing suffix.
func inflate(qualifier string, data []byte) ([]byte, error) {
	switch trailingSuffix(qualifier) {
	case "gz":
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening gzip content: %w", err)
		}
		defer reader.Close()
		inflated, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("inflating gzip content: %w", err)
		}
		return inflated, nil

	case "zst":
		reader, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening zstd content: %w", err)
		}
		defer reader.Close()
		inflated, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("inflating zstd content: %w", err)
		}
		return inflated, nil

	case "lz4":
		inflated, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("inflating lz4 content: %w", err)
		}
		return inflated, nil

	default:
		return nil, fmt.Errorf("unsupported compression suffix %q", qualifier)
	}
}

// trailingSuffix returns the qualifier's final dot-separated suffix.
func trailingSuffix(qualifier string) string {
	if i := strings.LastIndexByte(qualifier, '.'); i >= 0 {
		return qualifier[i+1:]
	}
	return qualifier
}
