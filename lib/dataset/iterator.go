// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"io"
	"time"

	"github.com/shardstream/shardstream/lib/record"
	"github.com/shardstream/shardstream/lib/shard"
	"github.com/shardstream/shardstream/lib/tarchive"
)

// shardCursor is one shard's ingestion state: the open byte source,
// the member stream, the grouper, and the validated leading window of
// raw examples.
type shardCursor struct {
	url     string
	source  io.ReadCloser
	stream  *tarchive.Stream
	grouper *shard.Grouper

	// window holds the leading groups pulled for structural
	// validation before any record is served. Served before the
	// grouper is consulted again.
	window []*shard.RawExample
	served int

	examples int
	started  time.Time
}

// openShard opens a shard and pulls its leading validation window.
// Structural violations in the window surface here, before a single
// example escapes, so a bad shard yields zero records.
func (d *Dataset) openShard(ctx context.Context, locator string) (*shardCursor, error) {
	d.logger.Debug("shard start", "shard", locator)
	source, err := d.opener.Open(ctx, locator)
	if err != nil {
		return nil, err
	}

	stream, err := tarchive.Open(locator, source)
	if err != nil {
		source.Close()
		return nil, err
	}

	cursor := &shardCursor{
		url:     locator,
		source:  source,
		stream:  stream,
		grouper: shard.NewGrouper(stream),
		started: time.Now(),
	}

	for len(cursor.window) < shard.ConsistencyWindow {
		example, err := cursor.grouper.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			source.Close()
			return nil, err
		}
		cursor.window = append(cursor.window, example)
	}

	return cursor, nil
}

// next returns the shard's next raw example, serving the validation
// window before resuming the grouper.
func (c *shardCursor) next() (*shard.RawExample, error) {
	if c.served < len(c.window) {
		example := c.window[c.served]
		c.window[c.served] = nil
		c.served++
		c.examples++
		return example, nil
	}
	example, err := c.grouper.Next()
	if err != nil {
		return nil, err
	}
	c.examples++
	return example, nil
}

func (c *shardCursor) Close() error {
	return c.source.Close()
}

// Iterator yields one record at a time from a split's shards, in
// shard order. Not safe for concurrent use.
type Iterator struct {
	ctx     context.Context
	dataset *Dataset
	shards  []string

	index  int
	cursor *shardCursor
}

// Iterate returns a pull-based iterator over the named split. The
// schema is finalized on first use. Within a shard, records come in
// archive order; a shard's structural failure is returned from
// [Iterator.Next] once and iteration then resumes with the next
// shard, so the caller chooses whether one bad shard is fatal.
func (d *Dataset) Iterate(ctx context.Context, splitName string) (*Iterator, error) {
	split, ok := d.splits[splitName]
	if !ok {
		return nil, &UnknownSplitError{Name: splitName}
	}
	if _, err := d.Schema(ctx); err != nil {
		return nil, err
	}
	return &Iterator{
		ctx:     ctx,
		dataset: d,
		shards:  split.Shards,
	}, nil
}

// Next returns the next record's key and value. It returns [io.EOF]
// when the split is exhausted. Shard-fatal errors (structure,
// corruption) abandon the current shard; decode errors do not, and
// iteration continues with the next example.
func (it *Iterator) Next() (string, *record.Record, error) {
	for {
		if err := it.ctx.Err(); err != nil {
			return "", nil, err
		}

		if it.cursor == nil {
			if it.index >= len(it.shards) {
				return "", nil, io.EOF
			}
			cursor, err := it.dataset.openShard(it.ctx, it.shards[it.index])
			it.index++
			if err != nil {
				return "", nil, err
			}
			it.cursor = cursor
		}

		raw, err := it.cursor.next()
		if err == io.EOF {
			it.finishShard()
			continue
		}
		if err != nil {
			it.cursor.Close()
			it.cursor = nil
			return "", nil, err
		}

		rec, err := it.dataset.materializer.Materialize(raw)
		if err != nil {
			// Decode failures are example-scoped; the shard
			// remains consistent and iteration continues.
			return "", nil, err
		}
		return raw.Key, rec, nil
	}
}

// finishShard logs the completed shard's summary and releases it.
func (it *Iterator) finishShard() {
	c := it.cursor
	it.cursor = nil
	it.dataset.logger.Info("shard complete",
		"shard", c.url,
		"members", c.stream.Count(),
		"examples", c.examples,
		"digest", c.stream.Digest(),
		"duration", time.Since(c.started))
	c.Close()
}

// Close releases the iterator's current shard, if any. Safe to call
// after exhaustion.
func (it *Iterator) Close() error {
	if it.cursor != nil {
		err := it.cursor.Close()
		it.cursor = nil
		return err
	}
	return nil
}
