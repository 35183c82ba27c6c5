package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

func TestPipeline_CoverageStats(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(&countingEmbedder{}, nil, Options{ChunkSize: 120, ChunkOverlap: 20})
	ctx := context.Background()

	stats, err := p.CoverageStats(ctx, "test-embedding-model")
	require.NoError(t, err)
	assert.Zero(t, stats.DocumentsTotal)
	assert.Zero(t, stats.Chunks)
	assert.Equal(t, ChunkTokenStats{}, stats.ChunkTokenStats)
	assert.Equal(t, ChunkerVersion, stats.ChunkerVersion)
	assert.Len(t, stats.IndexVersion, 16)

	_, err = p.IndexDocument(ctx, IndexRequest{Filename: "a.txt", Content: []byte(longText(4))})
	require.NoError(t, err)
	_, err = p.IndexDocument(ctx, IndexRequest{Filename: "b.pdf", Content: []byte("%PDF")})
	require.Error(t, err)

	stats, err = p.CoverageStats(ctx, "test-embedding-model")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentsTotal)
	assert.Equal(t, 1, stats.Documents[storage.StatusCompleted])
	assert.Equal(t, 1, stats.Documents[storage.StatusFailed])
	assert.Equal(t, 0, stats.Documents[storage.StatusProcessing])
	assert.Greater(t, stats.Chunks, 1)
	assert.Greater(t, stats.EstimatedTokens, 0)
	assert.LessOrEqual(t, stats.ChunkTokenStats.Min, stats.ChunkTokenStats.Max)

	other, err := p.CoverageStats(ctx, "another-model")
	require.NoError(t, err)
	assert.NotEqual(t, stats.IndexVersion, other.IndexVersion)
}

func TestComputeTokenStats(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   ChunkTokenStats
	}{
		{name: "empty", counts: nil, want: ChunkTokenStats{}},
		{name: "single", counts: []int{7}, want: ChunkTokenStats{Min: 7, Max: 7, Mean: 7, P95: 7}},
		{name: "unsorted", counts: []int{3, 1, 2}, want: ChunkTokenStats{Min: 1, Max: 3, Mean: 2, P95: 3}},
		{
			name:   "twenty values",
			counts: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			want:   ChunkTokenStats{Min: 1, Max: 20, Mean: 10.5, P95: 19},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, computeTokenStats(tt.counts))
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("ab"))
	assert.Equal(t, 3, estimateTokens("twelve chars"))
}
