// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shardstream/shardstream/lib/record"
	"github.com/shardstream/shardstream/lib/schema"
	"github.com/shardstream/shardstream/lib/shard"
)

func TestRenderRecord(t *testing.T) {
	example := shard.NewRawExample("00000", "mem://shard.tar")
	for qualifier, data := range map[string]string{
		"json": `{"caption": "this is an image", "width": 640}`,
		"jpg":  "fake jpeg bytes",
	} {
		if err := example.Add(qualifier, []byte(data)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	s, err := schema.Infer(example)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	m, err := record.NewMaterializer(s, record.Decoders{})
	if err != nil {
		t.Fatalf("NewMaterializer failed: %v", err)
	}
	rec, err := m.Materialize(example)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	var out bytes.Buffer
	if err := renderRecord(&out, rec); err != nil {
		t.Fatalf("renderRecord failed: %v", err)
	}

	var rendered map[string]any
	if err := json.Unmarshal(out.Bytes(), &rendered); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}

	if rendered["__key__"] != "00000" {
		t.Errorf("__key__ = %v", rendered["__key__"])
	}

	metadata, ok := rendered["json"].(map[string]any)
	if !ok {
		t.Fatalf("json = %T", rendered["json"])
	}
	if metadata["caption"] != "this is an image" {
		t.Errorf("caption = %v", metadata["caption"])
	}

	// Encoded payloads are summarized, never dumped.
	envelope, ok := rendered["jpg"].(map[string]any)
	if !ok {
		t.Fatalf("jpg = %T", rendered["jpg"])
	}
	if envelope["format"] != "jpg" {
		t.Errorf("envelope format = %v", envelope["format"])
	}
	if envelope["bytes"] != float64(len("fake jpeg bytes")) {
		t.Errorf("envelope bytes = %v", envelope["bytes"])
	}
}

func TestRenderAbsentAsNull(t *testing.T) {
	s, err := schema.New([]schema.Field{
		{Name: schema.KeyField, Type: schema.TypeText},
		{Name: schema.URLField, Type: schema.TypeText},
		{Name: "txt", Type: schema.TypeText},
	})
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}
	m, err := record.NewMaterializer(s, record.Decoders{})
	if err != nil {
		t.Fatalf("NewMaterializer failed: %v", err)
	}

	example := shard.NewRawExample("00000", "mem://shard.tar")
	if err := example.Add("jpg", []byte("undeclared")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	rec, err := m.Materialize(example)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	var out bytes.Buffer
	if err := renderRecord(&out, rec); err != nil {
		t.Fatalf("renderRecord failed: %v", err)
	}

	var rendered map[string]any
	if err := json.Unmarshal(out.Bytes(), &rendered); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	value, present := rendered["txt"]
	if !present || value != nil {
		t.Errorf("txt = %v, present %v, want null", value, present)
	}
	if _, present := rendered["jpg"]; present {
		t.Error("undeclared jpg was rendered")
	}
}
