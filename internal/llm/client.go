package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
)

// Client is a client for an OpenAI-compatible chat completions API.
type Client struct {
	BaseURL string
	Model   string
	gw      gateway
}

// NewClient creates a new completion client.
func NewClient(baseURL, apiKey, model string, opts Options) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		gw:      newGateway(apiKey, opts),
	}
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// Complete sends messages to the chat completions endpoint and returns the first choice.
// Every failure, including an empty answer, is a *CompletionError.
func (c *Client) Complete(ctx context.Context, messages []Message, params ChatParams) (Completion, error) {
	if len(messages) == 0 {
		return Completion{}, &CompletionError{Err: errors.New("no messages")}
	}

	model := params.Model
	if model == "" {
		model = c.Model
	}

	payload := ChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}

	var resp ChatResponse
	if err := c.gw.postJSON(ctx, fmt.Sprintf("%s/v1/chat/completions", c.BaseURL), payload, &resp); err != nil {
		return Completion{}, &CompletionError{Err: err}
	}

	if len(resp.Choices) == 0 {
		return Completion{}, &CompletionError{Err: errors.New("no choices returned")}
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return Completion{}, &CompletionError{Err: errNoContent}
	}

	out := Completion{
		Text:         text,
		Model:        model,
		FinishReason: resp.Choices[0].FinishReason,
	}
	if resp.Model != "" {
		out.Model = resp.Model
	}
	if resp.Usage != nil {
		out.Usage = *resp.Usage
		out.HasUsage = true
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "completion received",
		"model", out.Model,
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
		"finish_reason", out.FinishReason,
	)

	return out, nil
}
