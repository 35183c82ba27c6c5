// Package app assembles the service's components from configuration. Both the API
// server and the operator CLI build on it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/config"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/handlers"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/http"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/library"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/llm"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/service"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/vectorstore"
)

// App holds the wired components.
type App struct {
	Config        *config.Config
	DB            *sql.DB
	Documents     *storage.DocumentRepo
	Chunks        *storage.ChunkRepo
	Users         *storage.UserRepo
	Conversations *storage.ConversationRepo
	VectorStore   vectorstore.VectorStore
	Embeddings    *llm.EmbeddingsClient
	Completions   *llm.Client
	Engine        rag.Engine
	Pipeline      *indexer.Pipeline
	Syncer        *library.Syncer
	Chat          service.ChatService

	qdrant *vectorstore.QdrantStore
	probe  *llm.ModelProbe
}

// New opens the database, connects the vector backend and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := slog.Default()

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database initialized", "path", cfg.DBPath)

	a := &App{
		Config:        cfg,
		DB:            db,
		Documents:     storage.NewDocumentRepo(db),
		Chunks:        storage.NewChunkRepo(db),
		Users:         storage.NewUserRepo(db),
		Conversations: storage.NewConversationRepo(db),
	}

	switch cfg.VectorBackend {
	case config.VectorBackendMemory:
		a.VectorStore = vectorstore.NewMemoryStore()
		logger.Warn("Using in-memory vector store; vectors are lost on restart")
	default:
		qs, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		a.qdrant = qs
		if err := qs.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
		}
		a.VectorStore = qs
		logger.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)
	}

	// One limiter is shared so the configured rate bounds all gateway traffic.
	gatewayOpts := llm.Options{
		MaxRetries: cfg.Gateway.MaxRetries,
		Timeout:    cfg.Gateway.Timeout,
		Limiter:    llm.NewLimiter(cfg.Gateway.RateLimit),
	}
	a.Embeddings = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize, gatewayOpts)
	a.Completions = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, gatewayOpts)
	a.probe = llm.NewModelProbe(cfg.LLMBaseURL, cfg.LLMAPIKey, llm.Options{Timeout: cfg.Gateway.Timeout})

	pricing, err := service.LoadPricing(cfg.PricingFile)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Engine = rag.NewEngine(a.Documents, a.Embeddings, a.VectorStore, rag.Settings{
		Collection:   cfg.QdrantCollection,
		KeywordLimit: cfg.Retrieval.KeywordLimit,
		SemanticTopK: cfg.Retrieval.SemanticTopK,
		KeywordBoost: cfg.Retrieval.KeywordBoost,
		ContextLimit: cfg.Retrieval.ContextLimit,
	})
	a.Pipeline = indexer.NewPipeline(a.Documents, a.Chunks, a.Users, a.Embeddings, a.VectorStore, indexer.Options{
		Collection:      cfg.QdrantCollection,
		ChunkSize:       cfg.Indexing.ChunkSize,
		ChunkOverlap:    cfg.Indexing.ChunkOverlap,
		EmbedBatchSize:  cfg.Indexing.EmbedBatchSize,
		UpsertBatchSize: cfg.Indexing.UpsertBatchSize,
	})
	a.Syncer = library.NewSyncer(cfg.SystemDocsPath, a.Documents, a.Pipeline)
	a.Chat = service.NewChatService(a.Completions, a.Engine, a.Users, a.Conversations, pricing)

	return a, nil
}

// CheckModels verifies that the gateway serves the configured chat model.
func (a *App) CheckModels(ctx context.Context) error {
	return a.probe.CheckModel(ctx, a.Config.LLMModelName)
}

// HealthChecks returns the dependency probes reported by /api/health.
func (a *App) HealthChecks() map[string]handlers.CheckFunc {
	checks := map[string]handlers.CheckFunc{
		"database": a.DB.PingContext,
		"llm":      a.CheckModels,
	}
	if a.qdrant != nil {
		checks["vector_store"] = func(ctx context.Context) error {
			exists, err := a.qdrant.CollectionExists(ctx, a.Config.QdrantCollection)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("collection %s missing", a.Config.QdrantCollection)
			}
			return nil
		}
	}
	return checks
}

// RouterDeps returns the HTTP router dependencies.
func (a *App) RouterDeps() *http.Deps {
	return &http.Deps{
		ChatService:    a.Chat,
		Engine:         a.Engine,
		Documents:      a.Documents,
		Users:          a.Users,
		Indexer:        a.Pipeline,
		Syncer:         a.Syncer,
		Stats:          a.Pipeline,
		HealthChecks:   a.HealthChecks(),
		EmbeddingModel: a.Config.EmbeddingModelName,
		RequestTimeout: a.Config.RequestTimeout,
	}
}

// Close releases the vector store connection and the database.
func (a *App) Close() error {
	var errs []error
	if a.qdrant != nil {
		errs = append(errs, a.qdrant.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
