package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/vectorstore"
)

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HybridRetriever merges filename keyword matches with semantic search.
type HybridRetriever struct {
	keywords *KeywordMatcher
	embedder Embedder
	store    vectorstore.VectorStore
	settings Settings
}

// NewHybridRetriever creates a retriever.
func NewHybridRetriever(keywords *KeywordMatcher, embedder Embedder, store vectorstore.VectorStore, settings Settings) *HybridRetriever {
	return &HybridRetriever{
		keywords: keywords,
		embedder: embedder,
		store:    store,
		settings: settings,
	}
}

// Retrieve returns candidates sorted by boosted score (stable, descending) together with
// the keyword matches that produced the boosts.
func (r *HybridRetriever) Retrieve(ctx context.Context, q Query) ([]Candidate, []storage.DocumentMatch, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateQuery(q); err != nil {
		return nil, nil, err
	}

	// Both retrieval paths see the lowercased query; q.Text stays as typed for display.
	normalized := q
	normalized.Text = strings.ToLower(strings.TrimSpace(q.Text))

	// Keyword matching and embedding are independent; run them together.
	var (
		matches []storage.DocumentMatch
		vector  []float32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matches = r.keywords.Match(gctx, normalized)
		return nil
	})
	g.Go(func() error {
		vec, err := r.embedder.Embed(gctx, normalized.Text)
		if err != nil {
			return err
		}
		vector = vec
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return nil, nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vector) == 0 {
		logger.ErrorContext(ctx, "embedding returned an empty vector")
		return nil, nil, fmt.Errorf("%w: empty vector", ErrEmbedding)
	}

	keywordDocs := make(map[string]bool, len(matches))
	for _, m := range matches {
		keywordDocs[m.ID] = true
	}

	filter := vectorstore.Filter{Partition: string(q.Partition)}
	if q.Partition == storage.PartitionUser {
		filter.OwnerID = q.OwnerID
	}

	results, err := r.store.Search(ctx, r.settings.Collection, vector, r.settings.SemanticTopK, filter)
	if err != nil {
		logger.ErrorContext(ctx, "vector search failed", "error", err)
		return nil, nil, fmt.Errorf("%w: %w", ErrVectorSearch, err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, res := range results {
		p := res.Payload
		if !inScope(q, p) {
			logger.WarnContext(ctx, "dropping out-of-scope vector match",
				"chunk_id", res.ID,
				"partition", p.Partition,
				"owner_id", p.OwnerID,
			)
			continue
		}

		c := Candidate{
			ChunkID:    res.ID,
			DocumentID: p.DocumentID,
			Filename:   p.Filename,
			ChunkIndex: p.ChunkIndex,
			Partition:  storage.Partition(p.Partition),
			OwnerID:    p.OwnerID,
			Text:       p.Text,
			Score:      float64(res.Score),
		}
		c.KeywordMatch = c.DocumentID != "" && keywordDocs[c.DocumentID]
		c.BoostedScore = c.Score
		if c.KeywordMatch {
			// Multiplying a negative cosine would lower it, so the boost never goes below the raw score.
			c.BoostedScore = max(c.Score, c.Score*r.settings.KeywordBoost)
		}
		candidates = append(candidates, c)
	}

	sortCandidates(candidates)

	logger.DebugContext(ctx, "hybrid retrieval completed",
		"keyword_matches", len(matches),
		"semantic_matches", len(results),
		"candidates", len(candidates),
	)
	return candidates, matches, nil
}

// sortCandidates orders by boosted score, highest first. Equal scores keep search order.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].BoostedScore > candidates[j].BoostedScore
	})
}

func validateQuery(q Query) error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyQuery
	}
	if !q.Partition.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPartition, q.Partition)
	}
	if q.Partition == storage.PartitionUser && q.OwnerID == "" {
		return ErrOwnerRequired
	}
	return nil
}

// inScope re-checks the store's filtering against the payload.
func inScope(q Query, p vectorstore.Payload) bool {
	if p.Partition != string(q.Partition) {
		return false
	}
	if q.Partition == storage.PartitionUser && p.OwnerID != q.OwnerID {
		return false
	}
	return true
}
