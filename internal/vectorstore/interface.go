package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks github.com/dmos82/goldkey-chat-app-sub000/internal/vectorstore VectorStore

import (
	"context"
	"errors"
	"fmt"
)

// Partition values carried in the "source" payload field.
const (
	PartitionSystem = "system"
	PartitionUser   = "user"
)

// Payload is the metadata stored alongside every chunk vector.
type Payload struct {
	ChunkID    string // {documentId}_chunk_{index}
	DocumentID string // empty for legacy points
	Filename   string
	ChunkIndex int
	Partition  string // stored as "source"
	OwnerID    string // stored as "user_id"; empty for system documents
	Text       string
}

// Point represents a vector point with metadata. ID is the chunk id.
type Point struct {
	ID      string
	Vec     []float32
	Payload Payload
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	ID      string // chunk id
	Score   float32
	Payload Payload
}

// Filter restricts searches and deletions. Zero-valued fields are ignored.
type Filter struct {
	Partition  string
	OwnerID    string
	DocumentID string
}

// IsEmpty reports whether no condition is set.
func (f Filter) IsEmpty() bool {
	return f.Partition == "" && f.OwnerID == "" && f.DocumentID == ""
}

// Validate rejects a user-partition filter without an owner.
func (f Filter) Validate() error {
	if f.Partition == PartitionUser && f.OwnerID == "" {
		return errors.New("owner id is required for the user partition")
	}
	return nil
}

// Matches reports whether p satisfies every condition of f.
func (f Filter) Matches(p Payload) bool {
	if f.Partition != "" && p.Partition != f.Partition {
		return false
	}
	if f.OwnerID != "" && p.OwnerID != f.OwnerID {
		return false
	}
	if f.DocumentID != "" && p.DocumentID != f.DocumentID {
		return false
	}
	return true
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the k most similar points that satisfy filter, best first.
	Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error)

	// Delete removes points by their chunk IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByFilter removes every point matching filter. An empty filter is rejected.
	DeleteByFilter(ctx context.Context, collection string, filter Filter) error
}

// Error reports a vector store failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vectorstore %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
