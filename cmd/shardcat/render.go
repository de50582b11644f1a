// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shardstream/shardstream/lib/record"
)

// renderRecord writes one record as a single JSON line. Deferred
// payloads are summarized rather than decoded or base64-dumped: a
// terminal is not where you want a JPEG.
func renderRecord(w io.Writer, rec *record.Record) error {
	object := make(map[string]any, len(rec.Fields()))
	for _, name := range rec.Fields() {
		value, _ := rec.Get(name)
		object[name] = renderValue(value)
	}

	encoder := json.NewEncoder(w)
	return encoder.Encode(object)
}

func renderValue(value record.Value) any {
	switch v := value.(type) {
	case record.Text:
		return string(v)
	case record.Int:
		return int64(v)
	case record.Float:
		return float64(v)
	case record.Bool:
		return bool(v)
	case record.Tensor:
		return []float32(v)
	case record.Bytes:
		return map[string]any{"bytes": len(v)}
	case record.Encoded:
		return map[string]any{
			"media":  v.Media.String(),
			"format": v.Format,
			"bytes":  len(v.Bytes),
		}
	case record.Metadata:
		object := make(map[string]any, len(v))
		for name, nested := range v {
			object[name] = renderValue(nested)
		}
		return object
	default:
		// Absent, and anything a future value kind might add.
		if value == record.Absent {
			return nil
		}
		return fmt.Sprintf("%v", value)
	}
}
