package vectorstore

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
)

// MemoryStore is an in-process VectorStore that scores every point by cosine similarity.
// It is meant for development and tests; state lives until Reset is called.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Point
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Point)}
}

// Reset drops every collection.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]map[string]Point)
}

// Count returns the number of points in collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Upsert inserts or updates points in the collection.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Point)
		s.collections[collection] = coll
	}
	for _, p := range points {
		if len(p.Vec) == 0 {
			return &Error{Op: "upsert", Err: errors.New("empty vector for " + p.ID)}
		}
		p.Payload.ChunkID = p.ID
		vec := make([]float32, len(p.Vec))
		copy(vec, p.Vec)
		p.Vec = vec
		coll[p.ID] = p
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search returns the k most similar points that satisfy filter, best first.
// Ties are broken by chunk id so results are deterministic.
func (s *MemoryStore) Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error) {
	if k <= 0 {
		return nil, &Error{Op: "search", Err: errors.New("k must be greater than 0")}
	}
	if err := filter.Validate(); err != nil {
		return nil, &Error{Op: "search", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for id, p := range s.collections[collection] {
		if !filter.Matches(p.Payload) {
			continue
		}
		if len(p.Vec) != len(query) {
			continue
		}
		results = append(results, SearchResult{
			ID:      id,
			Score:   cosine(query, p.Vec),
			Payload: p.Payload,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes points by their chunk IDs.
func (s *MemoryStore) Delete(ctx context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[collection]
	for _, id := range ids {
		delete(coll, id)
	}
	return nil
}

// DeleteByFilter removes every point matching filter. An empty filter is rejected.
func (s *MemoryStore) DeleteByFilter(ctx context.Context, collection string, filter Filter) error {
	if filter.IsEmpty() {
		return &Error{Op: "delete", Err: errors.New("refusing to delete with an empty filter")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[collection]
	for id, p := range coll {
		if filter.Matches(p.Payload) {
			delete(coll, id)
		}
	}
	return nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
