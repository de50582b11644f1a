// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"

	"github.com/shardstream/shardstream/lib/schema"
)

// Value is one materialized field value. The implementing set is
// closed: Text, Int, Float, Bool, Bytes, Tensor, Encoded, Metadata,
// and the Absent marker.
type Value interface {
	// value seals the interface.
	value()
}

// Text is decoded UTF-8 text.
type Text string

// Int is a nested metadata integer.
type Int int64

// Float is a nested metadata floating-point number.
type Float float64

// Bool is a nested metadata boolean.
type Bool bool

// Bytes is uninterpreted passthrough content.
type Bytes []byte

// Tensor is a flat float32 sequence deserialized from a tensor field.
type Tensor []float32

// Encoded is a deferred binary payload: the raw bytes plus a format
// tag, produced for image and audio fields instead of a decoded
// object. Pass it to [Decoders.Decode] to run the actual decode.
type Encoded struct {
	// Bytes is the payload exactly as stored in the archive.
	Bytes []byte

	// Format is the payload format, taken from the qualifier's
	// trailing suffix ("jpg", "wav", ...).
	Format string

	// Media is the payload's semantic type, TypeImage or TypeAudio.
	Media schema.SemanticType
}

// Metadata is a decoded structured-metadata object, keyed by nested
// field name. Nested fields declared but missing map to [Absent].
type Metadata map[string]Value

// Absent marks a declared field with no value in the example. It is
// distinct from a decode failure, which surfaces as an error instead.
var Absent Value = absent{}

type absent struct{}

func (absent) value()   {}
func (Text) value()     {}
func (Int) value()      {}
func (Float) value()    {}
func (Bool) value()     {}
func (Bytes) value()    {}
func (Tensor) value()   {}
func (Encoded) value()  {}
func (Metadata) value() {}

func (absent) String() string { return "<absent>" }

func (e Encoded) String() string {
	return fmt.Sprintf("<%s %s, %d bytes>", e.Media, e.Format, len(e.Bytes))
}
