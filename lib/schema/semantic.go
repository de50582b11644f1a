// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "fmt"

// SemanticType identifies how a field's bytes are interpreted. The set
// is closed: dispatch over it is exhaustive, and adding a member is a
// format change for schema files.
type SemanticType uint8

const (
	// TypeInvalid is the zero value. No valid field carries it.
	TypeInvalid SemanticType = iota

	// TypeText is UTF-8 text decoded eagerly at materialization.
	TypeText

	// TypeCompressedText is text behind a per-member compression
	// layer (gzip, zstd, or lz4, selected by the qualifier's
	// trailing suffix). Decompressed and UTF-8 decoded at
	// materialization, with line endings normalized.
	TypeCompressedText

	// TypeMetadata is a structured object (JSON, JSONC, or CBOR)
	// with a declared nested schema. Decoded per example against
	// that fixed nested layout.
	TypeMetadata

	// TypeImage is an encoded image payload. Kept encoded through
	// materialization; decoding is a separate caller-invoked step.
	TypeImage

	// TypeAudio is an encoded audio payload, deferred like TypeImage.
	TypeAudio

	// TypeTensor is a numeric payload deserialized into a flat
	// float32 sequence at materialization.
	TypeTensor

	// TypeBytes is uninterpreted passthrough.
	TypeBytes

	// Scalar types below appear only inside nested metadata
	// schemas, never as top-level field types.

	// TypeInt is a nested integer scalar.
	TypeInt

	// TypeFloat is a nested floating-point scalar.
	TypeFloat

	// TypeBool is a nested boolean scalar.
	TypeBool
)

// String returns the schema-file name of the type.
func (t SemanticType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeCompressedText:
		return "compressed_text"
	case TypeMetadata:
		return "metadata"
	case TypeImage:
		return "image"
	case TypeAudio:
		return "audio"
	case TypeTensor:
		return "tensor"
	case TypeBytes:
		return "bytes"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(t))
	}
}

// ParseType maps a schema-file type name to its SemanticType.
func ParseType(name string) (SemanticType, error) {
	switch name {
	case "text":
		return TypeText, nil
	case "compressed_text":
		return TypeCompressedText, nil
	case "metadata":
		return TypeMetadata, nil
	case "image":
		return TypeImage, nil
	case "audio":
		return TypeAudio, nil
	case "tensor":
		return TypeTensor, nil
	case "bytes":
		return TypeBytes, nil
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	default:
		return TypeInvalid, fmt.Errorf("unknown semantic type %q", name)
	}
}

// Scalar reports whether the type is a nested-only scalar.
func (t SemanticType) Scalar() bool {
	return t == TypeInt || t == TypeFloat || t == TypeBool
}
