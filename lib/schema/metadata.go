// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"
)

// cborDecMode decodes CBOR metadata. Map keys in shard metadata are
// always strings, so any-typed targets decode to map[string]any
// instead of the CBOR default map[interface{}]interface{}, keeping the
// decoded object shape identical across the JSON and CBOR paths.
var cborDecMode cbor.DecMode

func init() {
	var err error
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("schema: CBOR decoder initialization failed: " + err.Error())
	}
}

// DecodeObject decodes a structured-metadata payload into a flat
// map of top-level keys. The codec is chosen by the qualifier's
// trailing suffix: "cbor" decodes as CBOR, "jsonc" strips comments and
// trailing commas first, everything else decodes as JSON. JSON numbers
// stay as [json.Number] so integer values survive without float
// rounding.
func DecodeObject(qualifier string, data []byte) (map[string]any, error) {
	switch lastSuffix(qualifier) {
	case "cbor":
		var object map[string]any
		if err := cborDecMode.Unmarshal(data, &object); err != nil {
			return nil, fmt.Errorf("decoding CBOR object: %w", err)
		}
		return object, nil

	case "jsonc":
		return decodeJSONObject(jsonc.ToJSON(data))

	default:
		return decodeJSONObject(data)
	}
}

func decodeJSONObject(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var object map[string]any
	if err := decoder.Decode(&object); err != nil {
		return nil, fmt.Errorf("decoding JSON object: %w", err)
	}
	return object, nil
}
