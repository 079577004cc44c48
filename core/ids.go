package core

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a 64-bit content-derived identifier. Backends that cannot key points
// by arbitrary strings (qdrant) use it as the point id.
type ID uint64

// chunkIDSeparator joins a document id and a chunk ordinal.
const chunkIDSeparator = "::chunk::"

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocIDFromFilename derives a document id from a transcript or metadata
// filename: the base name without its extension.
func DocIDFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ChunkID returns the stable id of the ordinal-th chunk of a document.
func ChunkID(docID string, ordinal int) string {
	return docID + chunkIDSeparator + strconv.Itoa(ordinal)
}

// ParseChunkID splits a chunk id into its document id and ordinal.
func ParseChunkID(id string) (docID string, ordinal int, err error) {
	idx := strings.LastIndex(id, chunkIDSeparator)
	if idx <= 0 {
		return "", 0, fmt.Errorf("%w: malformed chunk id %q", ErrValidation, id)
	}
	ordinal, err = strconv.Atoi(id[idx+len(chunkIDSeparator):])
	if err != nil || ordinal < 0 {
		return "", 0, fmt.Errorf("%w: malformed chunk ordinal in %q", ErrValidation, id)
	}
	return id[:idx], ordinal, nil
}
