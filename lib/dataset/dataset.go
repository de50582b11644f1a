// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shardstream/shardstream/lib/record"
	"github.com/shardstream/shardstream/lib/schema"
)

// Split names an ordered list of shard locators.
type Split struct {
	// Name is the split name ("train", "validation", ...).
	Name string

	// Shards are the shard locators, in ingestion order.
	Shards []string
}

// Dataset ingests sharded archives into typed records. Construct with
// [New]; the zero value is not usable.
type Dataset struct {
	splits map[string]Split
	order  []string

	opener   Opener
	decoders record.Decoders
	logger   *slog.Logger
	workers  int

	// finalizeOnce publishes the schema and materializer exactly
	// once. After it has run, both are read-only and shared across
	// concurrent shard workers.
	finalizeOnce sync.Once
	schema       *schema.Schema
	materializer *record.Materializer
	finalizeErr  error
}

// Option configures a dataset at construction.
type Option func(*Dataset)

// WithSchema supplies an explicit schema. Inference is skipped
// entirely: fields the data lacks materialize as absent, and data
// fields the schema omits are dropped.
func WithSchema(s *schema.Schema) Option {
	return func(d *Dataset) { d.schema = s }
}

// WithOpener replaces the default local-file opener.
func WithOpener(o Opener) Option {
	return func(d *Dataset) { d.opener = o }
}

// WithDecoders supplies the decode capabilities used for tensor
// fields and for the caller-invoked envelope decode stage.
func WithDecoders(decoders record.Decoders) Option {
	return func(d *Dataset) { d.decoders = decoders }
}

// WithLogger sets the structured logger for shard summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dataset) { d.logger = logger }
}

// WithWorkers sets the number of concurrent shard workers used by
// [Dataset.Run]. Values below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(d *Dataset) { d.workers = n }
}

// New builds a dataset over the given splits. Split names must be
// unique and every split needs at least one shard.
func New(splits []Split, options ...Option) (*Dataset, error) {
	if len(splits) == 0 {
		return nil, fmt.Errorf("dataset needs at least one split")
	}

	d := &Dataset{
		splits:  make(map[string]Split, len(splits)),
		opener:  FileOpener{},
		workers: 1,
	}
	for _, split := range splits {
		if split.Name == "" {
			return nil, fmt.Errorf("split with empty name")
		}
		if len(split.Shards) == 0 {
			return nil, fmt.Errorf("split %q has no shards", split.Name)
		}
		if _, dup := d.splits[split.Name]; dup {
			return nil, fmt.Errorf("duplicate split %q", split.Name)
		}
		d.splits[split.Name] = split
		d.order = append(d.order, split.Name)
	}

	for _, option := range options {
		option(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.workers < 1 {
		d.workers = 1
	}

	return d, nil
}

// Splits returns the split names in declaration order.
func (d *Dataset) Splits() []string {
	return d.order
}

// Schema returns the dataset's finalized schema, inferring it from
// the first example of the first shard on first use. Inference also
// runs the leading-window structural validation of that shard, so a
// malformed first shard fails here rather than mid-iteration.
func (d *Dataset) Schema(ctx context.Context) (*schema.Schema, error) {
	d.finalizeOnce.Do(func() { d.finalize(ctx) })
	return d.schema, d.finalizeErr
}

// finalize publishes the schema and the shared materializer. Runs
// under finalizeOnce.
func (d *Dataset) finalize(ctx context.Context) {
	if d.schema == nil {
		first := d.splits[d.order[0]].Shards[0]
		cursor, err := d.openShard(ctx, first)
		if err != nil {
			d.finalizeErr = fmt.Errorf("inferring schema: %w", err)
			return
		}
		defer cursor.Close()

		inferred, err := schema.Infer(cursor.window[0])
		if err != nil {
			d.finalizeErr = err
			return
		}
		d.schema = inferred
		d.logger.Debug("schema inferred", "shard", first, "schema", inferred)
	}

	materializer, err := record.NewMaterializer(d.schema, d.decoders)
	if err != nil {
		d.finalizeErr = err
		return
	}
	d.materializer = materializer
}
