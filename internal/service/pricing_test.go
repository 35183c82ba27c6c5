package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/llm"
)

func TestPricing_Price(t *testing.T) {
	p := DefaultPricing()

	tests := []struct {
		model string
		want  ModelPrice
	}{
		{model: "gpt-4o", want: ModelPrice{PromptPerMillion: 2.50, CompletionPerMillion: 10.00}},
		{model: "gpt-4o-mini-2024-07-18", want: ModelPrice{PromptPerMillion: 0.15, CompletionPerMillion: 0.60}},
		{model: "gpt-4.1-mini-2025-04-14", want: ModelPrice{PromptPerMillion: 0.40, CompletionPerMillion: 1.60}},
		{model: "some-local-model", want: p.Default},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Price(tt.model))
		})
	}
}

func TestPricing_Cost(t *testing.T) {
	p := DefaultPricing()
	cost := p.Cost("gpt-4o", llm.Usage{PromptTokens: 2_000_000, CompletionTokens: 100_000})
	assert.InDelta(t, 5.0+1.0, cost, 1e-9)
	assert.Zero(t, p.Cost("gpt-4o", llm.Usage{}))
}

func TestLoadPricing(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		p, err := LoadPricing("")
		require.NoError(t, err)
		assert.Equal(t, DefaultPricing(), p)
	})

	t.Run("file overlays defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pricing.yaml")
		content := `
default:
  prompt_per_million: 1
  completion_per_million: 2
models:
  gpt-4o:
    prompt_per_million: 3
    completion_per_million: 4
  llama-3:
    prompt_per_million: 0
    completion_per_million: 0
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		p, err := LoadPricing(path)
		require.NoError(t, err)
		assert.Equal(t, ModelPrice{PromptPerMillion: 1, CompletionPerMillion: 2}, p.Default)
		assert.Equal(t, ModelPrice{PromptPerMillion: 3, CompletionPerMillion: 4}, p.Price("gpt-4o"))
		assert.Equal(t, ModelPrice{}, p.Price("llama-3"))
		assert.Equal(t, DefaultPricing().Models["gpt-4.1"], p.Price("gpt-4.1"))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pricing.yaml")
		require.NoError(t, os.WriteFile(path, []byte("models: [oops"), 0o644))
		_, err := LoadPricing(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPricing(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
