package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector store backends selectable with VECTOR_BACKEND.
const (
	VectorBackendQdrant = "qdrant"
	VectorBackendMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	DBPath             string
	SystemDocsPath     string
	QdrantURL          string
	QdrantAPIKey       string
	QdrantCollection   string
	QdrantVectorSize   int
	VectorBackend      string
	APIPort            string
	LogLevel           slog.Level
	LogFormat          string
	PricingFile        string

	Retrieval RetrievalConfig
	Indexing  IndexingConfig
	Gateway   GatewayConfig

	// RequestTimeout bounds a single chat request end to end.
	RequestTimeout time.Duration
}

// RetrievalConfig holds the hybrid retrieval tunables.
type RetrievalConfig struct {
	KeywordLimit int
	SemanticTopK int
	KeywordBoost float64
	ContextLimit int
}

// IndexingConfig holds chunking and upsert tunables.
type IndexingConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	UpsertBatchSize int
	EmbedBatchSize  int
}

// GatewayConfig holds resilience settings shared by the embedding and completion clients.
type GatewayConfig struct {
	MaxRetries int
	// RateLimit is the maximum number of gateway requests per second. Zero disables throttling.
	RateLimit float64
	Timeout   time.Duration
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		DBPath:             getEnv("DB_PATH", "./data/goldkey.db"),
		SystemDocsPath:     getEnv("SYSTEM_DOCS_PATH", ""),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:       os.Getenv("QDRANT_API_KEY"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", VectorBackendQdrant)),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		PricingFile:        getEnv("PRICING_FILE", ""),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// Must match the output size of the embeddings model; changing it requires recreating the collection.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	switch cfg.VectorBackend {
	case VectorBackendQdrant, VectorBackendMemory:
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", VectorBackendQdrant, VectorBackendMemory, cfg.VectorBackend)
	}

	if cfg.Retrieval, err = loadRetrieval(); err != nil {
		return nil, err
	}
	if cfg.Indexing, err = loadIndexing(); err != nil {
		return nil, err
	}
	if cfg.Gateway, err = loadGateway(); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

func loadRetrieval() (RetrievalConfig, error) {
	var rc RetrievalConfig
	var err error
	if rc.KeywordLimit, err = getPositiveInt("KEYWORD_LIMIT", 5); err != nil {
		return rc, err
	}
	if rc.SemanticTopK, err = getPositiveInt("SEMANTIC_TOP_K", 15); err != nil {
		return rc, err
	}
	if rc.ContextLimit, err = getPositiveInt("CONTEXT_LIMIT", 7); err != nil {
		return rc, err
	}
	boostStr := getEnv("KEYWORD_BOOST", "1.5")
	rc.KeywordBoost, err = strconv.ParseFloat(boostStr, 64)
	if err != nil {
		return rc, fmt.Errorf("KEYWORD_BOOST must be a valid number: %w", err)
	}
	if rc.KeywordBoost < 1 {
		return rc, fmt.Errorf("KEYWORD_BOOST must be at least 1, got %v", rc.KeywordBoost)
	}
	return rc, nil
}

func loadIndexing() (IndexingConfig, error) {
	var ic IndexingConfig
	var err error
	if ic.ChunkSize, err = getPositiveInt("CHUNK_SIZE", 1000); err != nil {
		return ic, err
	}
	if ic.UpsertBatchSize, err = getPositiveInt("UPSERT_BATCH_SIZE", 100); err != nil {
		return ic, err
	}
	if ic.EmbedBatchSize, err = getPositiveInt("EMBED_BATCH_SIZE", 64); err != nil {
		return ic, err
	}
	overlapStr := getEnv("CHUNK_OVERLAP", "200")
	ic.ChunkOverlap, err = strconv.Atoi(overlapStr)
	if err != nil {
		return ic, fmt.Errorf("CHUNK_OVERLAP must be a valid integer: %w", err)
	}
	if ic.ChunkOverlap < 0 || ic.ChunkOverlap >= ic.ChunkSize {
		return ic, fmt.Errorf("CHUNK_OVERLAP must be between 0 and CHUNK_SIZE-1, got %d", ic.ChunkOverlap)
	}
	return ic, nil
}

func loadGateway() (GatewayConfig, error) {
	var gc GatewayConfig
	retriesStr := getEnv("GATEWAY_MAX_RETRIES", "3")
	retries, err := strconv.Atoi(retriesStr)
	if err != nil || retries < 0 {
		return gc, fmt.Errorf("GATEWAY_MAX_RETRIES must be a non-negative integer, got %q", retriesStr)
	}
	gc.MaxRetries = retries

	rateStr := getEnv("GATEWAY_RATE_LIMIT", "10")
	gc.RateLimit, err = strconv.ParseFloat(rateStr, 64)
	if err != nil || gc.RateLimit < 0 {
		return gc, fmt.Errorf("GATEWAY_RATE_LIMIT must be a non-negative number, got %q", rateStr)
	}

	if gc.Timeout, err = getDuration("GATEWAY_TIMEOUT", 30*time.Second); err != nil {
		return gc, err
	}
	return gc, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
