package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks github.com/dmos82/goldkey-chat-app-sub000/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_context_retriever.go -package=mocks github.com/dmos82/goldkey-chat-app-sub000/internal/service ContextRetriever
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService github.com/dmos82/goldkey-chat-app-sub000/internal/service ChatService

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/llm"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// LLMClient is an interface for interacting with an LLM API.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	// Complete sends the conversation to the model and returns its answer.
	Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (llm.Completion, error)
}

// ContextRetriever produces prompt context for a query.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, q rag.Query) (rag.Retrieval, error)
}

// persistenceWarning is returned alongside an answer that could not be saved.
const persistenceWarning = "The answer could not be saved to your conversation history."

// HistoryMessage is a prior turn supplied by the client.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnswerRequest represents a chat question in the domain layer.
type AnswerRequest struct {
	UserID  string
	Query   string
	History []HistoryMessage
	// Partition defaults to the system partition.
	Partition storage.Partition
	// OwnerID selects whose documents to search in the user partition. Defaults to UserID.
	OwnerID string
	// ConversationID continues an existing conversation when it belongs to the caller.
	ConversationID string
}

// AnswerResponse represents an answered question.
type AnswerResponse struct {
	Answer   string
	Sources  []rag.EvidenceItem
	Model    string
	Usage    llm.Usage
	HasUsage bool
	Cost     float64
	// ConversationID is empty when the exchange could not be persisted.
	ConversationID     string
	PersistenceWarning string
}

// ConversationMessage is a stored turn with its decoded sources.
type ConversationMessage struct {
	ID        string             `json:"id"`
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	Sources   []rag.EvidenceItem `json:"sources,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// ConversationDetail is a conversation with its messages.
type ConversationDetail struct {
	Conversation storage.ConversationRecord
	Messages     []ConversationMessage
}

// ChatService answers questions over the document partitions and keeps conversation history.
type ChatService interface {
	// AnswerQuery retrieves context, asks the model and records the exchange.
	AnswerQuery(ctx context.Context, req AnswerRequest) (AnswerResponse, error)
	// ListConversations returns the caller's conversations, most recent first.
	ListConversations(ctx context.Context, userID string) ([]storage.ConversationRecord, error)
	// GetConversation returns one of the caller's conversations with its messages.
	GetConversation(ctx context.Context, userID, conversationID string) (ConversationDetail, error)
}

// chatService implements ChatService.
type chatService struct {
	llmClient     LLMClient
	retriever     ContextRetriever
	users         storage.UserStore
	conversations storage.ConversationStore
	pricing       Pricing
	params        llm.ChatParams
	now           func() time.Time
}

// NewChatService creates a new ChatService.
func NewChatService(
	llmClient LLMClient,
	retriever ContextRetriever,
	users storage.UserStore,
	conversations storage.ConversationStore,
	pricing Pricing,
) ChatService {
	return &chatService{
		llmClient:     llmClient,
		retriever:     retriever,
		users:         users,
		conversations: conversations,
		pricing:       pricing,
		params:        llm.ChatParams{Temperature: 0.2},
		now:           time.Now,
	}
}

// AnswerQuery retrieves context, asks the model and records the exchange.
// Input problems are reported before any external call. Retrieval and generation
// failures abort without touching conversation history; a failure to save the
// exchange is reported through PersistenceWarning only.
func (s *chatService) AnswerQuery(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	user, q, err := s.validate(ctx, req)
	if err != nil {
		logger.WarnContext(ctx, "rejected chat request", "error", err)
		return AnswerResponse{}, err
	}

	retrieval, err := s.retriever.RetrieveContext(ctx, q)
	if err != nil {
		logger.ErrorContext(ctx, "failed to retrieve context", "error", err)
		return AnswerResponse{}, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	messages := buildMessages(retrieval.ContextText, req.History, q.Text)
	completion, err := s.llmClient.Complete(ctx, messages, s.params)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return AnswerResponse{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if strings.TrimSpace(completion.Text) == "" {
		logger.ErrorContext(ctx, "LLM returned an empty answer")
		return AnswerResponse{}, fmt.Errorf("%w: empty answer", ErrGeneration)
	}

	resp := AnswerResponse{
		Answer:   completion.Text,
		Sources:  retrieval.Evidence,
		Model:    completion.Model,
		Usage:    completion.Usage,
		HasUsage: completion.HasUsage,
	}
	if resp.Sources == nil {
		resp.Sources = []rag.EvidenceItem{}
	}

	if completion.HasUsage {
		resp.Cost = s.pricing.Cost(completion.Model, completion.Usage)
		month := s.now().UTC().Format("2006-01")
		if err := s.users.AddUsage(ctx, user.ID, month, completion.Usage.PromptTokens, completion.Usage.CompletionTokens, resp.Cost); err != nil {
			logger.WarnContext(ctx, "failed to record usage", "user_id", user.ID, "error", err)
		}
	}

	convID, err := s.persist(ctx, user.ID, req.ConversationID, q.Text, retrieval.Evidence, completion.Text)
	if err != nil {
		logger.ErrorContext(ctx, "failed to persist conversation", "user_id", user.ID, "error", err)
		resp.PersistenceWarning = persistenceWarning
	} else {
		resp.ConversationID = convID
	}

	logger.InfoContext(ctx, "chat request processed successfully",
		"partition", q.Partition,
		"evidence", len(resp.Sources),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"cost", resp.Cost,
	)
	return resp, nil
}

// validate checks the request and resolves the caller and the retrieval scope.
func (s *chatService) validate(ctx context.Context, req AnswerRequest) (*storage.UserRecord, rag.Query, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, rag.Query{}, &ValidationError{Field: "query", Message: "cannot be empty"}
	}

	partition := req.Partition
	if partition == "" {
		partition = storage.PartitionSystem
	}
	if !partition.Valid() {
		return nil, rag.Query{}, &ValidationError{Field: "partition", Message: fmt.Sprintf("unknown partition %q", partition)}
	}

	if req.ConversationID != "" {
		if _, err := uuid.Parse(req.ConversationID); err != nil {
			return nil, rag.Query{}, &ValidationError{Field: "conversation_id", Message: "must be a UUID"}
		}
	}

	if req.UserID == "" {
		return nil, rag.Query{}, &ValidationError{Field: "user_id", Message: "cannot be empty"}
	}
	user, err := s.users.GetByID(ctx, req.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, rag.Query{}, &ValidationError{Field: "user_id", Message: "unknown user"}
	}
	if err != nil {
		return nil, rag.Query{}, WrapError(err, "failed to load user")
	}

	q := rag.Query{Text: query, Partition: partition}
	if partition == storage.PartitionUser {
		owner := req.OwnerID
		if owner == "" {
			owner = user.ID
		}
		if owner != user.ID && !user.IsAdmin() {
			return nil, rag.Query{}, &ValidationError{Field: "owner_id", Message: "cannot search another user's documents"}
		}
		q.OwnerID = owner
	}
	return user, q, nil
}

// persist appends the exchange to the caller's conversation, creating one when the
// supplied id is empty or not owned by the caller.
func (s *chatService) persist(ctx context.Context, userID, conversationID, query string, evidence []rag.EvidenceItem, answer string) (string, error) {
	convID := ""
	if conversationID != "" {
		conv, err := s.conversations.GetForUser(ctx, conversationID, userID)
		switch {
		case err == nil:
			convID = conv.ID
		case errors.Is(err, storage.ErrNotFound):
		default:
			return "", WrapError(err, "failed to load conversation")
		}
	}

	if evidence == nil {
		evidence = []rag.EvidenceItem{}
	}
	sources, err := json.Marshal(evidence)
	if err != nil {
		return "", WrapError(err, "failed to encode sources")
	}

	if convID == "" {
		conv := &storage.ConversationRecord{UserID: userID, Title: conversationTitle(query)}
		if err := s.conversations.Create(ctx, conv); err != nil {
			return "", WrapError(err, "failed to create conversation")
		}
		convID = conv.ID
	}

	err = s.conversations.AppendExchange(ctx, convID, []*storage.MessageRecord{
		{Role: llm.RoleUser, Content: query, SourcesJSON: "[]"},
		{Role: llm.RoleAssistant, Content: answer, SourcesJSON: string(sources)},
	})
	if err != nil {
		return "", WrapError(err, "failed to save messages")
	}
	return convID, nil
}

// ListConversations returns the caller's conversations, most recent first.
func (s *chatService) ListConversations(ctx context.Context, userID string) ([]storage.ConversationRecord, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "cannot be empty"}
	}
	convs, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, WrapError(err, "failed to list conversations")
	}
	if convs == nil {
		convs = []storage.ConversationRecord{}
	}
	return convs, nil
}

// GetConversation returns one of the caller's conversations with its messages.
func (s *chatService) GetConversation(ctx context.Context, userID, conversationID string) (ConversationDetail, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return ConversationDetail{}, &ValidationError{Field: "conversation_id", Message: "must be a UUID"}
	}

	conv, err := s.conversations.GetForUser(ctx, conversationID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ConversationDetail{}, ErrNotFound
	}
	if err != nil {
		return ConversationDetail{}, WrapError(err, "failed to load conversation")
	}

	records, err := s.conversations.ListMessages(ctx, conv.ID)
	if err != nil {
		return ConversationDetail{}, WrapError(err, "failed to load messages")
	}

	detail := ConversationDetail{Conversation: *conv, Messages: make([]ConversationMessage, 0, len(records))}
	for _, r := range records {
		msg := ConversationMessage{ID: r.ID, Role: r.Role, Content: r.Content, CreatedAt: r.CreatedAt}
		if r.SourcesJSON != "" && r.SourcesJSON != "[]" {
			if err := json.Unmarshal([]byte(r.SourcesJSON), &msg.Sources); err != nil {
				contextutil.LoggerFromContext(ctx).WarnContext(ctx, "ignoring unreadable message sources", "message_id", r.ID, "error", err)
			}
		}
		detail.Messages = append(detail.Messages, msg)
	}
	return detail, nil
}
