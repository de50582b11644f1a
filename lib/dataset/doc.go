// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset wires shard ingestion into named splits.
//
// A [Dataset] holds an ordered set of splits, each an ordered list of
// shard locators. Locator resolution is delegated to an [Opener]; the
// engine itself only consumes byte streams. The dataset finalizes its
// schema exactly once, from the first example of the first shard, or
// verbatim from a caller-supplied schema, and shares it read-only
// across every shard worker afterwards.
//
// Iteration is pull based: [Dataset.Iterate] yields one record at a
// time and never buffers more than one in-progress example per shard,
// plus the small leading window the structural validator needs. Within
// a shard, consumption is strictly sequential; across shards,
// [Dataset.Run] fans out to independent workers. A shard that fails
// validation aborts alone and yields no records; its siblings are
// unaffected.
package dataset
