// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/shardstream/shardstream/lib/schema"
)

// DecodeError reports that a declared field's bytes could not be
// decoded by its capability. It always carries the field name and the
// example key, so a failure deep in a large split is attributable.
type DecodeError struct {
	// Field is the schema field being decoded.
	Field string

	// Key is the stem of the example the bytes came from.
	Key string

	// Err is the underlying decode failure.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("example %q: field %q: %v", e.Key, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoders holds the pluggable decode capabilities for deferred
// payloads. Image and audio have no default: decoding media is the
// caller's domain, and this engine only carries the encoded envelope.
// Tensor defaults to [DecodeFloat32] when nil.
type Decoders struct {
	// Image decodes an encoded image payload.
	Image func(data []byte, format string) (Value, error)

	// Audio decodes an encoded audio payload.
	Audio func(data []byte, format string) (Value, error)

	// Tensor deserializes a tensor payload into a flat float32
	// sequence.
	Tensor func(data []byte) (Tensor, error)
}

// Decode runs the deferred second stage on an encoded envelope. This
// is the only place image and audio capabilities are invoked;
// materialization never calls them.
func (d Decoders) Decode(enc Encoded) (Value, error) {
	switch enc.Media {
	case schema.TypeImage:
		if d.Image == nil {
			return nil, fmt.Errorf("no image decoder configured")
		}
		return d.Image(enc.Bytes, enc.Format)
	case schema.TypeAudio:
		if d.Audio == nil {
			return nil, fmt.Errorf("no audio decoder configured")
		}
		return d.Audio(enc.Bytes, enc.Format)
	default:
		return nil, fmt.Errorf("envelope media type %s is not decodable", enc.Media)
	}
}

// tensor returns the configured tensor decoder, falling back to the
// raw little-endian default.
func (d Decoders) tensor() func([]byte) (Tensor, error) {
	if d.Tensor != nil {
		return d.Tensor
	}
	return DecodeFloat32
}

// DecodeFloat32 deserializes a raw little-endian float32 sequence.
// This is the default tensor capability; framework-specific formats
// (torch checkpoints, npy) need a caller-supplied decoder.
func DecodeFloat32(data []byte) (Tensor, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("tensor payload length %d is not a multiple of 4", len(data))
	}
	tensor := make(Tensor, len(data)/4)
	for i := range tensor {
		tensor[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return tensor, nil
}
