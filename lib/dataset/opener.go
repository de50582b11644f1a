// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Opener resolves a shard locator to a byte stream. Globbing,
// discovery, and remote download live behind this boundary; the
// ingestion engine never interprets a locator beyond passing it here
// and stamping it on records as __url__.
type Opener interface {
	// Open returns a reader over the shard's archive bytes. The
	// caller closes it.
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// FileOpener resolves locators as local filesystem paths, optionally
// relative to Root.
type FileOpener struct {
	// Root, when set, anchors relative locators.
	Root string
}

// Open opens the shard file at the locator path.
func (o FileOpener) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	path := locator
	if o.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(o.Root, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shard %s: %w", locator, err)
	}
	return f, nil
}
