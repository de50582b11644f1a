// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/shardstream/shardstream/lib/record"
	"github.com/shardstream/shardstream/lib/schema"
	"github.com/shardstream/shardstream/lib/shard"
)

// mapOpener serves shard bytes from memory.
type mapOpener map[string][]byte

func (o mapOpener) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	data, ok := o[locator]
	if !ok {
		return nil, fmt.Errorf("no shard %q", locator)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type tarEntry struct {
	name string
	data []byte
}

func buildShard(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := tar.NewWriter(&buffer)
	for _, e := range entries {
		if err := writer.WriteHeader(&tar.Header{
			Name: e.name,
			Mode: 0o644,
			Size: int64(len(e.data)),
		}); err != nil {
			t.Fatalf("writing header for %s: %v", e.name, err)
		}
		if _, err := writer.Write(e.data); err != nil {
			t.Fatalf("writing data for %s: %v", e.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	return buffer.Bytes()
}

// imageShard builds n groups of {key.json, key.jpg}, keys offset so
// multiple shards stay disjoint.
func imageShard(t *testing.T, n, offset int) []byte {
	t.Helper()
	var entries []tarEntry
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("%05d", offset+i)
		entries = append(entries,
			tarEntry{key + ".json", []byte(`{"caption": "this is an image"}`)},
			tarEntry{key + ".jpg", []byte("fake jpeg " + key)},
		)
	}
	return buildShard(t, entries)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDataset(t *testing.T, shards mapOpener, splits []Split, options ...Option) *Dataset {
	t.Helper()
	options = append(options, WithOpener(shards), WithLogger(quietLogger()))
	d, err := New(splits, options...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func collect(t *testing.T, d *Dataset, split string) []*record.Record {
	t.Helper()
	iterator, err := d.Iterate(context.Background(), split)
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	defer iterator.Close()

	var records []*record.Record
	for {
		_, rec, err := iterator.Next()
		if err == io.EOF {
			return records
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		records = append(records, rec)
	}
}

func TestIterateInfersSchemaAndYieldsRecords(t *testing.T) {
	shards := mapOpener{"train-0.tar": imageShard(t, 3, 0)}
	d := newDataset(t, shards, []Split{{Name: "train", Shards: []string{"train-0.tar"}}})

	s, err := d.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	wantFields := []string{schema.KeyField, schema.URLField, "json", "jpg"}
	for i, field := range s.Fields() {
		if field.Name != wantFields[i] {
			t.Errorf("field %d = %q, want %q", i, field.Name, wantFields[i])
		}
	}

	records := collect(t, d, "train")
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	seen := make(map[string]bool)
	for i, rec := range records {
		key := rec.Key()
		if seen[key] {
			t.Errorf("duplicate key %q", key)
		}
		seen[key] = true
		if rec.URL() != "train-0.tar" {
			t.Errorf("record %d url = %q", i, rec.URL())
		}

		value, _ := rec.Get("json")
		metadata, ok := value.(record.Metadata)
		if !ok {
			t.Fatalf("record %d json is %T", i, value)
		}
		if metadata["caption"] != record.Text("this is an image") {
			t.Errorf("record %d caption = %v", i, metadata["caption"])
		}

		value, _ = rec.Get("jpg")
		if _, ok := value.(record.Encoded); !ok {
			t.Errorf("record %d jpg is %T, want Encoded", i, value)
		}
	}
}

func TestGzippedTextShard(t *testing.T) {
	const text = "it was the best of shards\r\nit was the worst of shards\n"
	var compressed bytes.Buffer
	w := gzip.NewWriter(&compressed)
	w.Write([]byte(text))
	w.Close()

	var entries []tarEntry
	for i := 0; i < 3; i++ {
		entries = append(entries, tarEntry{fmt.Sprintf("%05d.txt.gz", i), compressed.Bytes()})
	}
	shards := mapOpener{"text.tar": buildShard(t, entries)}
	d := newDataset(t, shards, []Split{{Name: "train", Shards: []string{"text.tar"}}})

	s, err := d.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	field, ok := s.Lookup("txt.gz")
	if !ok || field.Type != schema.TypeCompressedText {
		t.Fatalf("txt.gz field = %+v, ok %v", field, ok)
	}

	records := collect(t, d, "train")
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	const normalized = "it was the best of shards\nit was the worst of shards\n"
	for i, rec := range records {
		value, _ := rec.Get("txt.gz")
		if value != record.Text(normalized) {
			t.Errorf("record %d text = %q", i, value)
		}
	}
}

func TestBadShardYieldsZeroRecords(t *testing.T) {
	// Two unrelated files, no shared stem: the canonical bad shard.
	bad := buildShard(t, []tarEntry{
		{"image.jpg", []byte("fake jpeg")},
		{"data.json", []byte(`{"caption": "this is an image"}`)},
	})
	shards := mapOpener{"bad.tar": bad}
	d := newDataset(t, shards, []Split{{Name: "train", Shards: []string{"bad.tar"}}})

	// Schema inference reads the bad shard's leading window, so the
	// structural error surfaces before iteration begins.
	_, err := d.Iterate(context.Background(), "train")
	var structural *shard.StructureError
	if !errors.As(err, &structural) {
		t.Fatalf("Iterate error = %v, want *StructureError", err)
	}
}

func TestBadSiblingShardDoesNotAbortSplit(t *testing.T) {
	shards := mapOpener{
		"good-0.tar": imageShard(t, 3, 0),
		"bad.tar": buildShard(t, []tarEntry{
			{"image.jpg", []byte("fake jpeg")},
			{"data.json", []byte("{}")},
		}),
		"good-1.tar": imageShard(t, 3, 100),
	}
	d := newDataset(t, shards, []Split{{
		Name:   "train",
		Shards: []string{"good-0.tar", "bad.tar", "good-1.tar"},
	}})

	iterator, err := d.Iterate(context.Background(), "train")
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	defer iterator.Close()

	var keys []string
	var shardErrors int
	for {
		key, _, err := iterator.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var structural *shard.StructureError
			if !errors.As(err, &structural) {
				t.Fatalf("Next error = %v, want *StructureError", err)
			}
			shardErrors++
			continue
		}
		keys = append(keys, key)
	}

	if shardErrors != 1 {
		t.Errorf("got %d shard errors, want 1", shardErrors)
	}
	if len(keys) != 6 {
		t.Errorf("got %d records from good shards, want 6: %v", len(keys), keys)
	}
}

func TestExplicitSchemaTolerance(t *testing.T) {
	declared, err := schema.New([]schema.Field{
		{Name: schema.KeyField, Type: schema.TypeText},
		{Name: schema.URLField, Type: schema.TypeText},
		{Name: "json", Type: schema.TypeMetadata, Nested: []schema.Field{
			{Name: "caption", Type: schema.TypeText},
			{Name: "additional_field", Type: schema.TypeInt},
		}},
		{Name: "txt", Type: schema.TypeText},
	})
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}

	shards := mapOpener{"train-0.tar": imageShard(t, 3, 0)}
	d := newDataset(t, shards,
		[]Split{{Name: "train", Shards: []string{"train-0.tar"}}},
		WithSchema(declared))

	records := collect(t, d, "train")
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	for _, rec := range records {
		// Declared but absent from the data.
		if value, ok := rec.Get("txt"); !ok || value != record.Absent {
			t.Errorf("txt = %v, ok %v, want Absent", value, ok)
		}
		// Present in the data but not declared.
		if _, ok := rec.Get("jpg"); ok {
			t.Error("undeclared jpg field appeared in record")
		}
	}
}

func TestRunFansOutShards(t *testing.T) {
	shards := mapOpener{
		"s0.tar": imageShard(t, 3, 0),
		"s1.tar": imageShard(t, 3, 100),
		"s2.tar": imageShard(t, 3, 200),
	}
	d := newDataset(t, shards,
		[]Split{{Name: "train", Shards: []string{"s0.tar", "s1.tar", "s2.tar"}}},
		WithWorkers(2))

	var (
		mu   sync.Mutex
		keys []string
	)
	err := d.Run(context.Background(), "train", func(key string, rec *record.Record) error {
		mu.Lock()
		keys = append(keys, key)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(keys) != 9 {
		t.Fatalf("got %d records, want 9", len(keys))
	}
	sort.Strings(keys)
	for i := 1; i < len(keys); i++ {
		if keys[i] == keys[i-1] {
			t.Errorf("duplicate key %q", keys[i])
		}
	}
}

func TestRunCollectsShardErrors(t *testing.T) {
	shards := mapOpener{
		"good.tar": imageShard(t, 3, 0),
		"bad.tar": buildShard(t, []tarEntry{
			{"image.jpg", []byte("fake jpeg")},
			{"data.json", []byte("{}")},
		}),
	}
	d := newDataset(t, shards,
		[]Split{{Name: "train", Shards: []string{"good.tar", "bad.tar"}}},
		WithWorkers(2))

	var (
		mu    sync.Mutex
		count int
	)
	err := d.Run(context.Background(), "train", func(string, *record.Record) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var shardErr *ShardError
	if !errors.As(err, &shardErr) {
		t.Fatalf("Run error = %v, want *ShardError", err)
	}
	if shardErr.Locator != "bad.tar" {
		t.Errorf("failed locator = %q", shardErr.Locator)
	}
	if count != 3 {
		t.Errorf("good shard delivered %d records, want 3", count)
	}
}

func TestRunCallerStop(t *testing.T) {
	shards := mapOpener{"s0.tar": imageShard(t, 3, 0)}
	d := newDataset(t, shards, []Split{{Name: "train", Shards: []string{"s0.tar"}}})

	stop := errors.New("enough")
	err := d.Run(context.Background(), "train", func(string, *record.Record) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Run error = %v, want %v", err, stop)
	}
}

func TestUnknownSplit(t *testing.T) {
	shards := mapOpener{"s0.tar": imageShard(t, 3, 0)}
	d := newDataset(t, shards, []Split{{Name: "train", Shards: []string{"s0.tar"}}})

	_, err := d.Iterate(context.Background(), "validation")
	var unknown *UnknownSplitError
	if !errors.As(err, &unknown) {
		t.Fatalf("Iterate error = %v, want *UnknownSplitError", err)
	}
}

func TestDecodeErrorIsExampleScoped(t *testing.T) {
	const text = "a perfectly ordinary caption\n"
	var compressed bytes.Buffer
	w := gzip.NewWriter(&compressed)
	w.Write([]byte(text))
	w.Close()

	// The middle group's txt.gz member is not gzip at all; its
	// siblings in the same shard must still come through.
	shards := mapOpener{"mixed.tar": buildShard(t, []tarEntry{
		{"00000.txt.gz", compressed.Bytes()},
		{"00001.txt.gz", []byte("this is not a gzip stream")},
		{"00002.txt.gz", compressed.Bytes()},
	})}
	d := newDataset(t, shards, []Split{{Name: "train", Shards: []string{"mixed.tar"}}})

	iterator, err := d.Iterate(context.Background(), "train")
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	defer iterator.Close()

	var keys []string
	var decodeErrors []*record.DecodeError
	for {
		key, _, err := iterator.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var decodeErr *record.DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("Next error = %v, want *DecodeError", err)
			}
			decodeErrors = append(decodeErrors, decodeErr)
			continue
		}
		keys = append(keys, key)
	}

	if len(decodeErrors) != 1 {
		t.Fatalf("got %d decode errors, want 1: %v", len(decodeErrors), decodeErrors)
	}
	if decodeErrors[0].Key != "00001" {
		t.Errorf("decode error key = %q, want 00001", decodeErrors[0].Key)
	}
	want := []string{"00000", "00002"}
	if len(keys) != 2 || keys[0] != want[0] || keys[1] != want[1] {
		t.Errorf("surviving keys = %v, want %v", keys, want)
	}
}

func TestShardLifecycleLogging(t *testing.T) {
	shards := mapOpener{"s0.tar": imageShard(t, 2, 0)}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d, err := New(
		[]Split{{Name: "train", Shards: []string{"s0.tar"}}},
		WithOpener(shards),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := collect(t, d, "train"); len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}

	output := logs.String()
	if !strings.Contains(output, "shard start") {
		t.Errorf("log output missing shard start entry:\n%s", output)
	}
	if !strings.Contains(output, "shard complete") {
		t.Errorf("log output missing shard complete entry:\n%s", output)
	}
}
