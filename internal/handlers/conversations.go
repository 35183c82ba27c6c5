package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/service"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// ConversationHandler serves the caller's chat history.
type ConversationHandler struct {
	chatService service.ChatService
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(chatService service.ChatService) *ConversationHandler {
	return &ConversationHandler{chatService: chatService}
}

// ConversationSummary is one entry of the conversation list.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationDetailResponse is a conversation with its messages.
type ConversationDetailResponse struct {
	ConversationSummary
	Messages []service.ConversationMessage `json:"messages"`
}

func summarize(c storage.ConversationRecord) ConversationSummary {
	return ConversationSummary{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

// List handles GET /api/conversations.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	convs, err := h.chatService.ListConversations(ctx, userID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list conversations")
		return
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, summarize(c))
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

// Get handles GET /api/conversations/{id}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	detail, err := h.chatService.GetConversation(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to load conversation")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ConversationDetailResponse{
		ConversationSummary: summarize(detail.Conversation),
		Messages:            detail.Messages,
	})
}
