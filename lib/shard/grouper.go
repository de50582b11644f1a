// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package shard

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/shardstream/shardstream/lib/tarchive"
)

// ConsistencyWindow is the number of leading groups whose qualifier
// sets must agree. Archives that mix unrelated files produce singleton
// groups with disjoint qualifiers, which this check catches before any
// example escapes the shard.
const ConsistencyWindow = 5

// StructureError reports a violation of the shard grouping invariants.
// It is fatal for the shard: the grouper yields nothing further once
// one is raised.
type StructureError struct {
	// URL identifies the offending shard.
	URL string

	// Key is the stem involved in the violation, when one applies.
	Key string

	// Detail describes the violation.
	Detail string
}

func (e *StructureError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("shard %s: %s", e.URL, e.Detail)
	}
	return fmt.Sprintf("shard %s: key %q: %s", e.URL, e.Key, e.Detail)
}

// memberSource is the slice of [tarchive.Stream] the grouper consumes.
type memberSource interface {
	Next() (tarchive.Member, error)
	URL() string
}

// Grouper turns a member stream into a stream of sealed raw examples.
// Not safe for concurrent use.
type Grouper struct {
	source  memberSource
	current *RawExample
	sealed  map[string]struct{}

	firstQualifiers map[string]struct{}
	groupCount      int

	err  error
	done bool
}

// NewGrouper wraps a member stream. The grouper takes over reading
// from the stream; interleaving direct Next calls on the stream with
// grouper calls corrupts the grouping.
func NewGrouper(source memberSource) *Grouper {
	return &Grouper{
		source: source,
		sealed: make(map[string]struct{}),
	}
}

// Next returns the next sealed example in archive order. It returns
// [io.EOF] after the final group, a [*StructureError] on a grouping
// violation, and passes through [*tarchive.CorruptError] from the
// underlying stream. Any error is sticky.
func (g *Grouper) Next() (*RawExample, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.done {
		return nil, io.EOF
	}

	for {
		member, err := g.source.Next()
		if err == io.EOF {
			g.done = true
			if g.current == nil {
				if len(g.sealed) == 0 {
					g.err = &StructureError{URL: g.source.URL(), Detail: "archive contains no members"}
					return nil, g.err
				}
				return nil, io.EOF
			}
			return g.seal()
		}
		if err != nil {
			g.err = err
			return nil, err
		}

		key, qualifier, ok := splitStem(member.Name)
		if !ok {
			// Hidden members are tooling metadata, not fields.
			continue
		}
		if qualifier == "" {
			g.err = &StructureError{
				URL:    g.source.URL(),
				Key:    key,
				Detail: fmt.Sprintf("member %q has no extension qualifier", member.Name),
			}
			return nil, g.err
		}

		if g.current != nil && key != g.current.Key {
			sealed, err := g.seal()
			if err != nil {
				return nil, err
			}
			if err := g.begin(key, qualifier, member.Data); err != nil {
				// Shard aborted; the just-sealed group is dropped.
				return nil, err
			}
			return sealed, nil
		}

		if g.current == nil {
			if err := g.begin(key, qualifier, member.Data); err != nil {
				return nil, err
			}
			continue
		}

		if !g.current.add(qualifier, member.Data) {
			g.err = &StructureError{
				URL:    g.source.URL(),
				Key:    key,
				Detail: fmt.Sprintf("duplicate qualifier %q", qualifier),
			}
			return nil, g.err
		}
	}
}

// begin starts a new in-progress group, rejecting non-contiguous
// reuse of an already-sealed stem.
func (g *Grouper) begin(key, qualifier string, data []byte) error {
	if _, reused := g.sealed[key]; reused {
		g.err = &StructureError{
			URL:    g.source.URL(),
			Key:    key,
			Detail: "members are not contiguous: key reappears after its group was sealed",
		}
		return g.err
	}
	g.current = &RawExample{Key: key, URL: g.source.URL()}
	g.current.add(qualifier, data)
	return nil
}

// seal finishes the in-progress group, runs the leading-window
// consistency check, and returns the sealed example.
func (g *Grouper) seal() (*RawExample, error) {
	example := g.current
	g.current = nil
	g.sealed[example.Key] = struct{}{}
	g.groupCount++

	if g.groupCount == 1 {
		g.firstQualifiers = make(map[string]struct{}, example.Len())
		for _, qualifier := range example.qualifiers {
			g.firstQualifiers[qualifier] = struct{}{}
		}
		return example, nil
	}

	if g.groupCount <= ConsistencyWindow && !g.matchesFirst(example) {
		g.err = &StructureError{
			URL:    g.source.URL(),
			Key:    example.Key,
			Detail: fmt.Sprintf("qualifiers %v do not match the shard's first group", example.qualifiers),
		}
		return nil, g.err
	}

	return example, nil
}

func (g *Grouper) matchesFirst(example *RawExample) bool {
	if example.Len() != len(g.firstQualifiers) {
		return false
	}
	for _, qualifier := range example.qualifiers {
		if _, ok := g.firstQualifiers[qualifier]; !ok {
			return false
		}
	}
	return true
}

// splitStem computes the grouping key and extension qualifier of a
// member name. The key is the basename up to the first dot; the
// qualifier is everything after it, compound suffixes preserved
// verbatim ("00000.txt.gz" yields key "00000", qualifier "txt.gz").
// Hidden members (leading dot) report ok=false and are skipped.
func splitStem(name string) (key, qualifier string, ok bool) {
	base := path.Base(name)
	if strings.HasPrefix(base, ".") {
		return "", "", false
	}
	key, qualifier, found := strings.Cut(base, ".")
	if !found {
		return key, "", true
	}
	return key, qualifier, true
}
