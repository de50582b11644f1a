// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package shard

import "fmt"

// RawExample is one sealed group of archive members sharing a stem.
// Fields preserve archive order. Instances are produced by [Grouper],
// consumed immediately by schema inference or materialization, and
// then discarded; nothing in this package retains them.
type RawExample struct {
	// Key is the shared stem: the basename of every member in the
	// group up to its first dot.
	Key string

	// URL identifies the shard the group came from.
	URL string

	qualifiers []string
	data       map[string][]byte
}

// NewRawExample builds a raw example by hand. Ingestion always goes
// through [Grouper]; this constructor exists for schema inference on
// synthetic examples and for tests.
func NewRawExample(key, url string) *RawExample {
	return &RawExample{Key: key, URL: url}
}

// Add appends a field to the example. Adding a qualifier twice is an
// error, mirroring the grouper's duplicate rule.
func (e *RawExample) Add(qualifier string, data []byte) error {
	if !e.add(qualifier, data) {
		return &StructureError{URL: e.URL, Key: e.Key, Detail: fmt.Sprintf("duplicate qualifier %q", qualifier)}
	}
	return nil
}

// Qualifiers returns the extension qualifiers present in the group, in
// archive order. The returned slice is owned by the example; callers
// must not modify it.
func (e *RawExample) Qualifiers() []string {
	return e.qualifiers
}

// Bytes returns the raw content stored under qualifier, and whether
// the qualifier is present.
func (e *RawExample) Bytes(qualifier string) ([]byte, bool) {
	data, ok := e.data[qualifier]
	return data, ok
}

// Len returns the number of fields in the group.
func (e *RawExample) Len() int {
	return len(e.qualifiers)
}

// add appends a field. Reports whether the qualifier was new; a false
// return means the group already holds bytes under that qualifier.
func (e *RawExample) add(qualifier string, data []byte) bool {
	if _, exists := e.data[qualifier]; exists {
		return false
	}
	if e.data == nil {
		e.data = make(map[string][]byte, 4)
	}
	e.qualifiers = append(e.qualifiers, qualifier)
	e.data[qualifier] = data
	return true
}
