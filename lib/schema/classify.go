// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "strings"

// compoundTypes match whole multi-part qualifiers. Checked before the
// single-suffix table so that "txt.gz" never classifies as a bare
// "gz" blob or plain "txt".
var compoundTypes = map[string]SemanticType{
	"txt.gz":  TypeCompressedText,
	"txt.zst": TypeCompressedText,
	"txt.lz4": TypeCompressedText,
}

// suffixTypes match the qualifier's final dot-separated suffix.
var suffixTypes = map[string]SemanticType{
	"txt": TypeText,

	"json":  TypeMetadata,
	"jsonc": TypeMetadata,
	"cbor":  TypeMetadata,

	"jpg":  TypeImage,
	"jpeg": TypeImage,
	"png":  TypeImage,
	"gif":  TypeImage,
	"bmp":  TypeImage,
	"webp": TypeImage,
	"tiff": TypeImage,

	"wav":  TypeAudio,
	"mp3":  TypeAudio,
	"flac": TypeAudio,
	"ogg":  TypeAudio,
	"m4a":  TypeAudio,

	"pth": TypeTensor,
	"npy": TypeTensor,
}

// Classify maps an extension qualifier to its semantic type. Compound
// qualifiers win by longest suffix; anything unrecognized is byte
// passthrough. The field name is always the qualifier itself, so this
// function is the complete dispatch.
func Classify(qualifier string) SemanticType {
	lowered := strings.ToLower(qualifier)

	if t, ok := compoundTypes[lowered]; ok {
		return t
	}
	for compound, t := range compoundTypes {
		if strings.HasSuffix(lowered, "."+compound) {
			return t
		}
	}
	if t, ok := suffixTypes[lastSuffix(lowered)]; ok {
		return t
	}
	return TypeBytes
}

// lastSuffix returns the portion of the qualifier after its final
// dot, or the whole qualifier when it has none.
func lastSuffix(qualifier string) string {
	if i := strings.LastIndexByte(qualifier, '.'); i >= 0 {
		return qualifier[i+1:]
	}
	return qualifier
}
