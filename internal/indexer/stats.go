package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

const (
	// ChunkerVersion identifies the chunking implementation.
	// Update this when chunking logic changes significantly.
	ChunkerVersion = "v2.0"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// CoverageStats summarizes what is currently indexed.
type CoverageStats struct {
	// Documents counts documents by ingestion status.
	Documents map[storage.DocumentStatus]int `json:"documents"`
	// DocumentsTotal is the sum over all statuses.
	DocumentsTotal int `json:"documents_total"`
	// Chunks is the number of stored chunks.
	Chunks int `json:"chunks"`
	// EstimatedTokens is the approximate token total across all chunks.
	EstimatedTokens int `json:"estimated_tokens"`
	// ChunkTokenStats contains statistics about token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	ChunkerVersion  string          `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// CoverageStats computes coverage statistics from the metadata store.
func (p *Pipeline) CoverageStats(ctx context.Context, embeddingModelName string) (*CoverageStats, error) {
	counts, err := p.documents.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	stats := &CoverageStats{
		Documents: map[storage.DocumentStatus]int{
			storage.StatusProcessing: 0,
			storage.StatusCompleted:  0,
			storage.StatusFailed:     0,
		},
		ChunkerVersion: ChunkerVersion,
	}
	for status, n := range counts {
		stats.Documents[status] = n
		stats.DocumentsTotal += n
	}

	texts, err := p.chunks.ListTexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	stats.Chunks = len(texts)

	tokenCounts := make([]int, 0, len(texts))
	for _, t := range texts {
		n := estimateTokens(t)
		tokenCounts = append(tokenCounts, n)
		stats.EstimatedTokens += n
	}
	stats.ChunkTokenStats = computeTokenStats(tokenCounts)

	indexVersionInput := fmt.Sprintf("%s|%s|chunkSize=%d|chunkOverlap=%d",
		ChunkerVersion, embeddingModelName, p.chunker.size, p.chunker.overlap)
	hash := sha256.Sum256([]byte(indexVersionInput))
	stats.IndexVersion = hex.EncodeToString(hash[:])[:16]

	return stats, nil
}

// estimateTokens approximates the token count of s from its rune count, minimum 1.
func estimateTokens(s string) int {
	n := int(math.Round(float64(utf8.RuneCountInString(s)) / TokensPerRune))
	if n < 1 {
		return 1
	}
	return n
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	if p95Index < 0 {
		p95Index = 0
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
