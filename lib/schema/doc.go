// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the typed field layout of a dataset.
//
// Every field carries a [SemanticType] chosen from a closed set, so
// dispatch over field kinds is exhaustive. Extension qualifiers map to
// types through a longest-suffix precedence table: "txt.gz" classifies
// as compressed text before "gz" or "txt" could match, and each
// qualifier classifies exactly once.
//
// A [Schema] is built exactly once per dataset, either inferred from
// the first raw example of the first shard via [Infer] or supplied by
// the caller, and is immutable afterwards. It always begins with the two
// reserved fields "__key__" and "__url__". A supplied schema is
// authoritative: fields it declares but the data lacks materialize as
// absent, and data fields it omits are dropped, never rejected.
package schema
