// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package tarchive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"
)

// Transport framing magic bytes. Sniffed by [Open] to pick the
// decompression layer in front of the tar reader.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Member is one regular file read from a shard archive. Data is fully
// read before the member is handed out; the slice is owned by the
// caller and never reused by the stream.
type Member struct {
	// Name is the member path as recorded in the archive.
	Name string

	// Data is the member's complete content.
	Data []byte
}

// Size returns the member's content length in bytes.
func (m Member) Size() int64 {
	return int64(len(m.Data))
}

// CorruptError reports malformed container framing: a bad tar header,
// truncated member data, or broken transport compression. It is fatal
// for the shard it occurred in.
type CorruptError struct {
	// URL identifies the shard being read.
	URL string

	// Member is the zero-based index of the member being read when
	// the corruption was detected, or -1 if the archive framing
	// itself could not be opened.
	Member int

	// Err is the underlying framing error.
	Err error
}

func (e *CorruptError) Error() string {
	if e.Member < 0 {
		return fmt.Sprintf("shard %s: corrupt archive: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("shard %s: corrupt archive at member %d: %v", e.URL, e.Member, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Stream reads archive members in order. Create one with [Open], then
// call [Stream.Next] until it returns [io.EOF]. Streams are not safe
// for concurrent use.
type Stream struct {
	url    string
	reader *tar.Reader
	hasher *blake3.Hasher

	// release frees the transport decompressor, if any. It does not
	// close the underlying source; the caller owns that.
	release func()

	index int
	done  bool
}

// Open prepares a member stream over r, which must yield a tar archive
// optionally wrapped in gzip, zstd, or lz4 framing. The url is used
// only for error reporting and digest attribution; it is not
// dereferenced. The caller retains ownership of r and must close it
// after the stream is exhausted or abandoned.
func Open(url string, r io.Reader) (*Stream, error) {
	buffered := bufio.NewReader(r)

	source, release, err := unwrapTransport(buffered)
	if err != nil {
		return nil, &CorruptError{URL: url, Member: -1, Err: err}
	}

	hasher := blake3.New()

	return &Stream{
		url:     url,
		reader:  tar.NewReader(io.TeeReader(source, hasher)),
		hasher:  hasher,
		release: release,
	}, nil
}

// unwrapTransport sniffs the leading magic bytes of r and wraps it in
// the matching decompressor. Plain tar input is returned unchanged.
func unwrapTransport(r *bufio.Reader) (io.Reader, func(), error) {
	head, err := r.Peek(4)
	if err != nil && len(head) < 2 {
		return nil, nil, fmt.Errorf("reading transport magic: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("opening gzip transport: %w", err)
		}
		return gz, func() { gz.Close() }, nil

	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("opening zstd transport: %w", err)
		}
		return dec, dec.Close, nil

	case bytes.HasPrefix(head, lz4Magic):
		return lz4.NewReader(r), func() {}, nil
	}

	return r, func() {}, nil
}

// Next returns the next regular member in archive order, fully read.
// Directories, symlinks, and other non-file entries are skipped. It
// returns [io.EOF] after the last member, and a [*CorruptError] if the
// archive framing is invalid.
func (s *Stream) Next() (Member, error) {
	if s.done {
		return Member{}, io.EOF
	}

	for {
		header, err := s.reader.Next()
		if err == io.EOF {
			s.done = true
			s.release()
			return Member{}, io.EOF
		}
		if err != nil {
			s.done = true
			s.release()
			return Member{}, &CorruptError{URL: s.url, Member: s.index, Err: err}
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		data := make([]byte, header.Size)
		if _, err := io.ReadFull(s.reader, data); err != nil {
			s.done = true
			s.release()
			return Member{}, &CorruptError{
				URL:    s.url,
				Member: s.index,
				Err:    fmt.Errorf("reading member %q (%d bytes): %w", header.Name, header.Size, err),
			}
		}

		s.index++
		return Member{Name: header.Name, Data: data}, nil
	}
}

// URL returns the shard identifier the stream was opened with.
func (s *Stream) URL() string {
	return s.url
}

// Count returns the number of regular members read so far.
func (s *Stream) Count() int {
	return s.index
}

// Digest returns the BLAKE3 digest of the decompressed archive bytes
// consumed so far, hex encoded. It is stable only after Next has
// returned [io.EOF]; before that it covers the prefix read so far.
func (s *Stream) Digest() string {
	return hex.EncodeToString(s.hasher.Sum(nil))
}
