// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/shardstream/shardstream/lib/record"
)

// Run ingests every shard of the named split, fanning shards out to
// the configured number of workers, and calls fn for each record.
// Within one shard records arrive in archive order; across shards the
// interleaving is unspecified. fn must be safe for concurrent calls
// when more than one worker is configured.
//
// A shard-fatal failure (structure or corruption) abandons only that
// shard; its error is collected and the siblings keep going. Decode
// errors are handled the same way here, since Run has no per-record
// error channel; use [Dataset.Iterate] to keep consuming a shard past
// a decode failure. Run
// returns the collected shard errors joined together, each wrapped in
// a [*ShardError]. An error returned by fn is different: it cancels
// the whole run and is returned alone.
func (d *Dataset) Run(ctx context.Context, splitName string, fn func(key string, rec *record.Record) error) error {
	split, ok := d.splits[splitName]
	if !ok {
		return &UnknownSplitError{Name: splitName}
	}
	if _, err := d.Schema(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	locators := make(chan string)
	var (
		wg sync.WaitGroup

		mu          sync.Mutex
		shardErrors []error
		callerErr   error
	)

	workers := min(d.workers, len(split.Shards))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for locator := range locators {
				if err := d.runShard(runCtx, locator, fn); err != nil {
					mu.Lock()
					if errors.Is(err, errCallerStop) {
						// Workers stopped by the shared cancellation
						// report a context error; only the worker
						// whose fn actually failed records it.
						unwrapped := errors.Unwrap(err)
						if callerErr == nil && !errors.Is(unwrapped, context.Canceled) && !errors.Is(unwrapped, context.DeadlineExceeded) {
							callerErr = unwrapped
						}
						cancel()
					} else {
						shardErrors = append(shardErrors, &ShardError{Locator: locator, Err: err})
					}
					mu.Unlock()
				}
			}
		}()
	}

	for _, locator := range split.Shards {
		select {
		case locators <- locator:
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			break
		}
	}
	close(locators)
	wg.Wait()

	if callerErr != nil {
		return callerErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(shardErrors...)
}

// errCallerStop wraps an error returned by the caller's record
// function so runShard failures can distinguish "the data is bad"
// from "the caller said stop".
var errCallerStop = errors.New("caller stopped the run")

type callerStopError struct{ err error }

func (e *callerStopError) Error() string { return e.err.Error() }
func (e *callerStopError) Unwrap() error { return e.err }
func (e *callerStopError) Is(target error) bool {
	return target == errCallerStop
}

// runShard ingests one shard sequentially and delivers its records.
func (d *Dataset) runShard(ctx context.Context, locator string, fn func(string, *record.Record) error) error {
	cursor, err := d.openShard(ctx, locator)
	if err != nil {
		return err
	}
	defer cursor.Close()

	for {
		if err := ctx.Err(); err != nil {
			return &callerStopError{err: err}
		}

		raw, err := cursor.next()
		if err == io.EOF {
			d.logger.Info("shard complete",
				"shard", locator,
				"members", cursor.stream.Count(),
				"examples", cursor.examples,
				"digest", cursor.stream.Digest(),
				"duration", time.Since(cursor.started))
			return nil
		}
		if err != nil {
			return err
		}

		rec, err := d.materializer.Materialize(raw)
		if err != nil {
			return err
		}
		if err := fn(raw.Key, rec); err != nil {
			return &callerStopError{err: err}
		}
	}
}
