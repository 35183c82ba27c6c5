package rag

import "github.com/dmos82/goldkey-chat-app-sub000/internal/storage"

// Settings holds the retrieval tunables.
type Settings struct {
	// Collection is the vector collection to search.
	Collection string
	// KeywordLimit caps the number of filename matches considered.
	KeywordLimit int
	// SemanticTopK is the number of nearest chunks requested from the vector store.
	SemanticTopK int
	// KeywordBoost multiplies the score of chunks whose document matched by filename.
	KeywordBoost float64
	// ContextLimit is the maximum number of evidence items in one context.
	ContextLimit int
}

// DefaultSettings returns the standard retrieval tunables.
func DefaultSettings() Settings {
	return Settings{
		Collection:   "documents",
		KeywordLimit: 5,
		SemanticTopK: 15,
		KeywordBoost: 1.5,
		ContextLimit: 7,
	}
}

// ContextSeparator joins chunk texts in the assembled context.
const ContextSeparator = "\n\n---\n\n"

// Query is a retrieval request.
type Query struct {
	Text      string            `json:"query"`
	Partition storage.Partition `json:"partition"`
	// OwnerID is mandatory for the user partition and ignored for the system partition.
	OwnerID string `json:"owner_id,omitempty"`
}

// Candidate is a chunk returned by semantic search, annotated with keyword evidence.
type Candidate struct {
	ChunkID      string            `json:"chunk_id"`
	DocumentID   string            `json:"document_id,omitempty"`
	Filename     string            `json:"filename"`
	ChunkIndex   int               `json:"chunk_index"`
	Partition    storage.Partition `json:"partition"`
	OwnerID      string            `json:"owner_id,omitempty"`
	Text         string            `json:"text"`
	Score        float64           `json:"score"`
	BoostedScore float64           `json:"boosted_score"`
	KeywordMatch bool              `json:"keyword_match"`
}

// EvidenceItem is a candidate selected into the context. Rank is 1-based.
type EvidenceItem struct {
	Candidate
	Rank int `json:"rank"`
}

// Retrieval is the result of RetrieveContext.
type Retrieval struct {
	// ContextText is the joined evidence text, or a placeholder when nothing was found.
	ContextText string
	Evidence    []EvidenceItem
	// Candidates is the full ranked candidate list, kept for debugging.
	Candidates []Candidate
	// KeywordMatches are the documents whose filename matched the query.
	KeywordMatches []storage.DocumentMatch
}
