package indexer

import (
	"strconv"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// Chunk represents a window of extracted document text.
type Chunk struct {
	Index int    // position within the document, starting at 0
	Text  string // chunk text content
}

// IndexRequest describes an upload to be indexed.
type IndexRequest struct {
	Filename  string
	MimeType  string
	Content   []byte
	Partition storage.Partition
	// OwnerID is required for the user partition and ignored for the system partition.
	OwnerID string
}

// ChunkID returns the identifier of the index-th chunk of a document.
func ChunkID(documentID string, index int) string {
	return documentID + "_chunk_" + strconv.Itoa(index)
}
