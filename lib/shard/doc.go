// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

// Package shard groups archive members into raw examples.
//
// Members of a shard archive belong to the same example when they
// share a stem: the basename portion before the first dot. The
// [Grouper] walks the member stream in archive order and seals one
// [RawExample] each time the stem changes, so grouping is strictly
// streaming and order dependent. Files for one example must be
// contiguous; a later member reusing an earlier stem is a structural
// error, never a silent merge.
//
// Structural invariants are enforced as members arrive and violations
// surface as [*StructureError]: duplicate qualifiers within a group,
// non-contiguous stem reuse, an empty archive, and early groups whose
// qualifier sets disagree (the classic bad shard of unrelated files
// thrown into one archive). The first violation poisons the grouper;
// no further examples are produced from a shard proven inconsistent.
package shard
