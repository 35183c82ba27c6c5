package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/service"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
	timeout     time.Duration
}

// NewChatHandler creates a new ChatHandler. A positive timeout bounds each request.
func NewChatHandler(chatService service.ChatService, timeout time.Duration) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		timeout:     timeout,
	}
}

// ChatRequest represents the HTTP request payload for chat.
//
// swagger:model ChatRequest
type ChatRequest struct {
	Query          string                   `json:"query"`
	History        []service.HistoryMessage `json:"history,omitempty"`
	Partition      string                   `json:"partition,omitempty"`
	OwnerID        string                   `json:"owner_id,omitempty"`
	ConversationID string                   `json:"conversation_id,omitempty"`
}

// UsageResponse reports token usage and cost for one answer.
type UsageResponse struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

// ChatResponse represents the HTTP response payload for chat.
//
// swagger:model ChatResponse
type ChatResponse struct {
	Answer  string             `json:"answer"`
	Sources []rag.EvidenceItem `json:"sources"`
	Model   string             `json:"model,omitempty"`
	// Usage is omitted when the completion gateway did not report token counts.
	Usage          *UsageResponse `json:"usage,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	// Warning is set when the answer could not be saved to history.
	Warning string `json:"warning,omitempty"`
}

// ServeHTTP answers a question over the selected document partition.
//
// swagger:route POST /api/chat chat
//
// responses:
//
//	'200': ChatResponse
//	'400': ErrorResponse
//	'502': ErrorResponse
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	svcResp, err := h.chatService.AnswerQuery(ctx, service.AnswerRequest{
		UserID:         userID,
		Query:          req.Query,
		History:        req.History,
		Partition:      storage.Partition(req.Partition),
		OwnerID:        req.OwnerID,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process chat request")
		return
	}

	resp := ChatResponse{
		Answer:         svcResp.Answer,
		Sources:        svcResp.Sources,
		Model:          svcResp.Model,
		ConversationID: svcResp.ConversationID,
		Warning:        svcResp.PersistenceWarning,
	}
	if resp.Sources == nil {
		resp.Sources = []rag.EvidenceItem{}
	}
	if svcResp.HasUsage {
		resp.Usage = &UsageResponse{
			PromptTokens:     svcResp.Usage.PromptTokens,
			CompletionTokens: svcResp.Usage.CompletionTokens,
			TotalTokens:      svcResp.Usage.TotalTokens,
			Cost:             svcResp.Cost,
		}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
