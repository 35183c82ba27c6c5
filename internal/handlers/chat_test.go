package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/llm"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/service"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/service/mocks"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// newRequest builds a request carrying userID as the authenticated caller.
func newRequest(method, target string, body any, userID string) *http.Request {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != "" {
		req = req.WithContext(contextutil.WithUserID(req.Context(), userID))
	}
	return req
}

func TestChatHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name          string
		body          any
		userID        string
		mockSetup     func(*mocks.MockChatService)
		wantStatus    int
		checkResponse func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:   "successful request",
			body:   ChatRequest{Query: "What is covered?", Partition: "user", ConversationID: "c1"},
			userID: "u1",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					AnswerQuery(gomock.Any(), service.AnswerRequest{
						UserID: "u1", Query: "What is covered?", Partition: storage.PartitionUser, ConversationID: "c1",
					}).
					Return(service.AnswerResponse{
						Answer:         "Collision.",
						Sources:        []rag.EvidenceItem{{Candidate: rag.Candidate{ChunkID: "d_chunk_0", Filename: "Auto.md"}, Rank: 1}},
						Model:          "gpt-4o-mini",
						Usage:          llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
						HasUsage:       true,
						Cost:           0.001,
						ConversationID: "c1",
					}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp ChatResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Answer != "Collision." || resp.ConversationID != "c1" {
					t.Errorf("unexpected response: %+v", resp)
				}
				if len(resp.Sources) != 1 || resp.Sources[0].Filename != "Auto.md" {
					t.Errorf("unexpected sources: %+v", resp.Sources)
				}
				if resp.Usage == nil || resp.Usage.TotalTokens != 15 || resp.Usage.Cost != 0.001 {
					t.Errorf("unexpected usage: %+v", resp.Usage)
				}
			},
		},
		{
			name:   "persistence warning and no usage",
			body:   ChatRequest{Query: "q"},
			userID: "u1",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().AnswerQuery(gomock.Any(), gomock.Any()).
					Return(service.AnswerResponse{Answer: "a", PersistenceWarning: "not saved"}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var raw map[string]any
				if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if raw["warning"] != "not saved" {
					t.Errorf("warning = %v", raw["warning"])
				}
				if _, ok := raw["usage"]; ok {
					t.Error("usage should be omitted")
				}
				if _, ok := raw["conversation_id"]; ok {
					t.Error("conversation_id should be omitted")
				}
				if sources, ok := raw["sources"].([]any); !ok || len(sources) != 0 {
					t.Errorf("sources = %v, want empty array", raw["sources"])
				}
			},
		},
		{
			name:       "missing identity",
			body:       ChatRequest{Query: "q"},
			mockSetup:  func(m *mocks.MockChatService) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid JSON body",
			body:       "invalid json",
			userID:     "u1",
			mockSetup:  func(m *mocks.MockChatService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "validation error",
			body:   ChatRequest{Query: ""},
			userID: "u1",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().AnswerQuery(gomock.Any(), gomock.Any()).
					Return(service.AnswerResponse{}, &service.ValidationError{Field: "query", Message: "cannot be empty"})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "generation failure hides detail",
			body:   ChatRequest{Query: "q"},
			userID: "u1",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().AnswerQuery(gomock.Any(), gomock.Any()).
					Return(service.AnswerResponse{}, fmt.Errorf("%w: upstream 500 secret", service.ErrGeneration))
			},
			wantStatus: http.StatusBadGateway,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp ErrorResponse
				_ = json.NewDecoder(w.Body).Decode(&resp)
				if resp.Error != processingFailedMessage {
					t.Errorf("error = %q, want %q", resp.Error, processingFailedMessage)
				}
			},
		},
		{
			name:   "retrieval failure",
			body:   ChatRequest{Query: "q"},
			userID: "u1",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().AnswerQuery(gomock.Any(), gomock.Any()).
					Return(service.AnswerResponse{}, fmt.Errorf("%w: %w", service.ErrRetrieval, rag.ErrEmbedding))
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:   "unexpected error",
			body:   ChatRequest{Query: "q"},
			userID: "u1",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().AnswerQuery(gomock.Any(), gomock.Any()).
					Return(service.AnswerResponse{}, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockChatService := mocks.NewMockChatService(ctrl)
			tt.mockSetup(mockChatService)

			handler := NewChatHandler(mockChatService, 0)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, newRequest(http.MethodPost, "/api/chat", tt.body, tt.userID))

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestChatHandler_AppliesTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockChatService := mocks.NewMockChatService(ctrl)
	mockChatService.EXPECT().AnswerQuery(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ service.AnswerRequest) (service.AnswerResponse, error) {
			deadline, ok := ctx.Deadline()
			if !ok || time.Until(deadline) > time.Minute {
				t.Errorf("expected a request deadline, got %v (set %v)", deadline, ok)
			}
			return service.AnswerResponse{Answer: "a"}, nil
		})

	handler := NewChatHandler(mockChatService, 30*time.Second)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newRequest(http.MethodPost, "/api/chat", ChatRequest{Query: "q"}, "u1"))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
