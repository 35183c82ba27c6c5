package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrModelUnavailable is returned when the gateway does not list the configured model.
var ErrModelUnavailable = errors.New("model not available")

// ModelInfo is one entry of the gateway model listing.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ModelsResponse represents the response from the /v1/models endpoint.
type ModelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// ModelProbe checks that a gateway is reachable and serves a given model.
type ModelProbe struct {
	baseURL string
	gw      gateway
}

// NewModelProbe creates a probe for the OpenAI-compatible gateway at baseURL.
func NewModelProbe(baseURL, apiKey string, opts Options) *ModelProbe {
	return &ModelProbe{
		baseURL: strings.TrimRight(baseURL, "/"),
		gw:      newGateway(apiKey, opts),
	}
}

// ListModels returns the models the gateway advertises.
func (p *ModelProbe) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var resp ModelsResponse
	if err := p.gw.getJSON(ctx, p.baseURL+"/v1/models", &resp); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return resp.Data, nil
}

// CheckModel returns nil when model is listed by the gateway.
// Gateways that list no models at all are treated as serving any model.
func (p *ModelProbe) CheckModel(ctx context.Context, model string) error {
	models, err := p.ListModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return nil
	}
	for _, m := range models {
		if m.ID == model {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrModelUnavailable, model)
}
