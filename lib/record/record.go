// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package record

import "github.com/shardstream/shardstream/lib/schema"

// Record is one materialized example: field name to value, ordered by
// the schema it was materialized against. Records are plain data;
// they hold no reference to the shard or the materializer.
type Record struct {
	names  []string
	values map[string]Value
}

// Fields returns the record's field names in schema order. The slice
// is shared across all records from one materializer; callers must
// not modify it.
func (r *Record) Fields() []string {
	return r.names
}

// Get returns the value stored under name. The boolean is false only
// for names the schema never declared; declared-but-missing fields
// return [Absent] with true.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Key returns the example's stem, the reserved __key__ field.
func (r *Record) Key() string {
	return string(r.values[schema.KeyField].(Text))
}

// URL returns the originating shard identifier, the reserved __url__
// field.
func (r *Record) URL() string {
	return string(r.values[schema.URLField].(Text))
}
