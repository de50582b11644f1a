// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

// Package tarchive reads shard archives member by member.
//
// A shard is a tar-formatted container. The package exposes a strictly
// sequential [Stream] over its members: each call to [Stream.Next]
// fully reads one member's bytes before advancing, and there is no
// random access. This ordering guarantee is what the grouping layer
// above depends on.
//
// [Open] sniffs the transport framing of the source: plain tar passes
// through, while gzip, zstd, and lz4 framed archives are transparently
// decompressed before the tar layer. All decompressed archive bytes
// are fed through a BLAKE3 hasher so that [Stream.Digest] can report a
// content digest once the stream is exhausted.
package tarchive
