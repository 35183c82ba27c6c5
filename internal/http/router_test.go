package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/handlers"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/library"
	rag_mocks "github.com/dmos82/goldkey-chat-app-sub000/internal/rag/mocks"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/service"
	service_mocks "github.com/dmos82/goldkey-chat-app-sub000/internal/service/mocks"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
	storage_mocks "github.com/dmos82/goldkey-chat-app-sub000/internal/storage/mocks"
)

type stubIndexer struct{}

func (stubIndexer) IndexDocument(context.Context, indexer.IndexRequest) (*storage.DocumentRecord, error) {
	return nil, indexer.ErrInvalidRequest
}

func (stubIndexer) DeleteDocument(context.Context, string, string) (*indexer.DeleteTask, error) {
	return nil, indexer.ErrForbidden
}

type stubSyncer struct{}

func (stubSyncer) Sync(context.Context) (library.Result, error) { return library.Result{}, nil }

type stubStats struct{}

func (stubStats) CoverageStats(context.Context, string) (*indexer.CoverageStats, error) {
	return &indexer.CoverageStats{}, nil
}

type routerFixture struct {
	chat      *service_mocks.MockChatService
	engine    *rag_mocks.MockEngine
	documents *storage_mocks.MockDocumentStore
	users     *storage_mocks.MockUserStore
	router    http.Handler
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &routerFixture{
		chat:      service_mocks.NewMockChatService(ctrl),
		engine:    rag_mocks.NewMockEngine(ctrl),
		documents: storage_mocks.NewMockDocumentStore(ctrl),
		users:     storage_mocks.NewMockUserStore(ctrl),
	}
	f.router = NewRouter(&Deps{
		ChatService: f.chat,
		Engine:      f.engine,
		Documents:   f.documents,
		Users:       f.users,
		Indexer:     stubIndexer{},
		Syncer:      stubSyncer{},
		Stats:       stubStats{},
		HealthChecks: map[string]handlers.CheckFunc{
			"database": func(context.Context) error { return nil },
		},
		EmbeddingModel: "text-embedding-3-small",
	})
	return f
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		userID     string
		setup      func(f *routerFixture)
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/api/health", wantStatus: http.StatusOK},
		{name: "stats", method: http.MethodGet, path: "/api/stats", wantStatus: http.StatusOK},
		{name: "chat requires identity", method: http.MethodPost, path: "/api/chat", wantStatus: http.StatusUnauthorized},
		{name: "chat invalid body", method: http.MethodPost, path: "/api/chat", userID: "u1", wantStatus: http.StatusBadRequest},
		{name: "GET chat not allowed", method: http.MethodGet, path: "/api/chat", wantStatus: http.StatusMethodNotAllowed},
		{name: "search invalid body", method: http.MethodPost, path: "/api/search", userID: "u1", wantStatus: http.StatusBadRequest},
		{
			name: "list documents", method: http.MethodGet, path: "/api/documents", userID: "u1",
			setup: func(f *routerFixture) {
				f.documents.EXPECT().FindByFilter(gomock.Any(), storage.DocumentFilter{Partition: storage.PartitionSystem}).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{name: "delete document", method: http.MethodDelete, path: "/api/documents/d1", userID: "u1", wantStatus: http.StatusForbidden},
		{
			name: "list conversations", method: http.MethodGet, path: "/api/conversations", userID: "u1",
			setup: func(f *routerFixture) {
				f.chat.EXPECT().ListConversations(gomock.Any(), "u1").Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "get conversation", method: http.MethodGet, path: "/api/conversations/c1", userID: "u1",
			setup: func(f *routerFixture) {
				f.chat.EXPECT().GetConversation(gomock.Any(), "u1", "c1").Return(service.ConversationDetail{}, service.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "index requires admin", method: http.MethodPost, path: "/api/index", userID: "u1",
			setup: func(f *routerFixture) {
				f.users.EXPECT().GetByID(gomock.Any(), "u1").Return(&storage.UserRecord{ID: "u1", Role: storage.RoleUser}, nil)
			},
			wantStatus: http.StatusForbidden,
		},
		{name: "unknown route", method: http.MethodGet, path: "/api/unknown", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{"))
			if tt.userID != "" {
				req.Header.Set(UserIDHeader, tt.userID)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v (body %s)", tt.method, tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}
