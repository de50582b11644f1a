// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

// Package record turns raw examples into typed records.
//
// A [Materializer] is built once from a finalized schema and reused
// for every example: the per-field decode plan is validated at
// construction, not per record. Materialization decodes text and
// metadata eagerly, deserializes tensors, and keeps image and audio
// payloads encoded inside an [Encoded] envelope. Fully decoding those
// envelopes is a separate, caller-invoked step through [Decoders], so
// no payload is copied or decoded unless someone asks for it.
//
// Declared fields missing from an example materialize as [Absent],
// which is an explicit marker distinct from a decode failure.
// Qualifiers present in the data but not declared in the schema are
// dropped silently.
package record
