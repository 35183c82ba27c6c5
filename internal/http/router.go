package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/handlers"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/service"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService    service.ChatService
	Engine         rag.Engine
	Documents      storage.DocumentStore
	Users          storage.UserStore
	Indexer        handlers.DocumentIndexer
	Syncer         handlers.LibrarySyncer
	Stats          handlers.StatsProvider
	HealthChecks   map[string]handlers.CheckFunc
	EmbeddingModel string
	// RequestTimeout bounds each chat request; zero disables it.
	RequestTimeout time.Duration
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(Identity)
	r.Use(RequestLogger)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService, deps.RequestTimeout)
	searchHandler := handlers.NewSearchHandler(deps.Engine, deps.Users)
	documentHandler := handlers.NewDocumentHandler(deps.Documents, deps.Users, deps.Indexer)
	conversationHandler := handlers.NewConversationHandler(deps.ChatService)
	indexHandler := handlers.NewIndexHandler(deps.Syncer, deps.Users)
	statsHandler := handlers.NewStatsHandler(deps.Stats, deps.EmbeddingModel)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodPost, "/search", searchHandler)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", documentHandler.List)
			r.Post("/", documentHandler.Upload)
			r.Delete("/{id}", documentHandler.Delete)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Get("/{id}", conversationHandler.Get)
		})

		r.Method(http.MethodPost, "/index", indexHandler)
		r.Method(http.MethodGet, "/stats", statsHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
