package rag

import (
	"context"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/vectorstore"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks github.com/dmos82/goldkey-chat-app-sub000/internal/rag Engine

// Engine retrieves prompt context for a query.
type Engine interface {
	// RetrieveContext runs hybrid retrieval and assembles the evidence for q.
	RetrieveContext(ctx context.Context, q Query) (Retrieval, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	retriever *HybridRetriever
	assembler ContextAssembler
}

// NewEngine creates a new retrieval engine.
func NewEngine(index FilenameIndex, embedder Embedder, store vectorstore.VectorStore, settings Settings) Engine {
	return &ragEngine{
		retriever: NewHybridRetriever(NewKeywordMatcher(index, settings.KeywordLimit), embedder, store, settings),
		assembler: NewContextAssembler(settings.ContextLimit),
	}
}

// RetrieveContext runs hybrid retrieval and assembles the evidence for q.
// Zero matches is not an error: the context text is then a placeholder naming the query.
func (e *ragEngine) RetrieveContext(ctx context.Context, q Query) (Retrieval, error) {
	logger := contextutil.LoggerFromContext(ctx)

	candidates, matches, err := e.retriever.Retrieve(ctx, q)
	if err != nil {
		return Retrieval{}, err
	}

	evidence, text := e.assembler.Assemble(q, candidates)

	logger.InfoContext(ctx, "context retrieved",
		"partition", q.Partition,
		"keyword_matches", len(matches),
		"candidates", len(candidates),
		"evidence", len(evidence),
	)

	return Retrieval{
		ContextText:    text,
		Evidence:       evidence,
		Candidates:     candidates,
		KeywordMatches: matches,
	}, nil
}
