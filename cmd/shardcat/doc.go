// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

// Shardcat streams the records of a shard dataset to stdout as JSON
// lines, one object per example. It exists to eyeball shards: check
// that grouping holds, see what schema inference produces, and catch
// structural errors before a training job does.
//
// Shards come either from positional arguments, which form an ad-hoc
// "train" split, or from a YAML config file declaring named splits:
//
//	splits:
//	  - name: train
//	    shards: [shards/train-000.tar, shards/train-001.tar]
//	  - name: validation
//	    shards: [shards/val-000.tar]
//
// An explicit schema can be supplied as a JSONC file with --schema;
// otherwise the schema is inferred from the first example of the
// first shard. Encoded image and audio payloads are summarized as
// format plus byte length, never decoded. With --workers above one,
// shards are ingested concurrently and record order across shards is
// unspecified.
package main
