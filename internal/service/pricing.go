package service

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/llm"
)

// ModelPrice is the price of one million tokens, in USD.
type ModelPrice struct {
	PromptPerMillion     float64 `yaml:"prompt_per_million"`
	CompletionPerMillion float64 `yaml:"completion_per_million"`
}

// Pricing maps model names to token prices.
type Pricing struct {
	Default ModelPrice            `yaml:"default"`
	Models  map[string]ModelPrice `yaml:"models"`
}

// DefaultPricing returns list prices for the models the service is usually pointed at.
func DefaultPricing() Pricing {
	mini := ModelPrice{PromptPerMillion: 0.15, CompletionPerMillion: 0.60}
	return Pricing{
		Default: mini,
		Models: map[string]ModelPrice{
			"gpt-4o-mini":  mini,
			"gpt-4o":       {PromptPerMillion: 2.50, CompletionPerMillion: 10.00},
			"gpt-4.1":      {PromptPerMillion: 2.00, CompletionPerMillion: 8.00},
			"gpt-4.1-mini": {PromptPerMillion: 0.40, CompletionPerMillion: 1.60},
			"gpt-4.1-nano": {PromptPerMillion: 0.10, CompletionPerMillion: 0.40},
		},
	}
}

// LoadPricing reads a YAML pricing file and layers it over DefaultPricing.
// An empty path returns the defaults.
//
//	default:
//	  prompt_per_million: 0.15
//	  completion_per_million: 0.60
//	models:
//	  my-model:
//	    prompt_per_million: 1.0
//	    completion_per_million: 2.0
func LoadPricing(path string) (Pricing, error) {
	pricing := DefaultPricing()
	if path == "" {
		return pricing, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Pricing{}, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var override Pricing
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Pricing{}, fmt.Errorf("failed to parse pricing file: %w", err)
	}

	if override.Default != (ModelPrice{}) {
		pricing.Default = override.Default
	}
	for model, price := range override.Models {
		pricing.Models[model] = price
	}
	return pricing, nil
}

// Price returns the price for model. Dated snapshots such as "gpt-4o-mini-2024-07-18"
// resolve to the longest known prefix; unknown models use the default entry.
func (p Pricing) Price(model string) ModelPrice {
	if price, ok := p.Models[model]; ok {
		return price
	}
	best := ""
	for name := range p.Models {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return p.Models[best]
	}
	return p.Default
}

// Cost returns the USD cost of usage on model.
func (p Pricing) Cost(model string, usage llm.Usage) float64 {
	price := p.Price(model)
	return float64(usage.PromptTokens)*price.PromptPerMillion/1e6 +
		float64(usage.CompletionTokens)*price.CompletionPerMillion/1e6
}
