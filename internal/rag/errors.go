package rag

import "errors"

var (
	// ErrEmptyQuery is returned when the query text is blank.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrInvalidPartition is returned for a partition other than system or user.
	ErrInvalidPartition = errors.New("invalid partition")
	// ErrOwnerRequired is returned when the user partition is queried without an owner.
	ErrOwnerRequired = errors.New("owner id is required for the user partition")
	// ErrEmbedding is returned when the query could not be embedded.
	ErrEmbedding = errors.New("failed to embed query")
	// ErrVectorSearch is returned when the vector store query fails.
	ErrVectorSearch = errors.New("vector search failed")
)
