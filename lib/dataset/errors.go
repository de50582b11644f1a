// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import "fmt"

// UnknownSplitError reports a request for a split the dataset does
// not declare.
type UnknownSplitError struct {
	// Name is the requested split name.
	Name string
}

func (e *UnknownSplitError) Error() string {
	return fmt.Sprintf("unknown split %q", e.Name)
}

// ShardError attributes a shard-fatal failure to its shard during a
// parallel run. The underlying error is a structure or corruption
// error from ingestion.
type ShardError struct {
	// Locator is the failed shard.
	Locator string

	// Err is the shard-fatal failure.
	Err error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("shard %s failed: %v", e.Locator, e.Err)
}

func (e *ShardError) Unwrap() error {
	return e.Err
}
