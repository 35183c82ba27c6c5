package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var configEnvVars = []string{
	"QDRANT_VECTOR_SIZE", "LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME", "DB_PATH", "SYSTEM_DOCS_PATH",
	"QDRANT_URL", "QDRANT_API_KEY", "QDRANT_COLLECTION", "VECTOR_BACKEND", "API_PORT",
	"LOG_LEVEL", "LOG_FORMAT", "PRICING_FILE",
	"KEYWORD_LIMIT", "SEMANTIC_TOP_K", "KEYWORD_BOOST", "CONTEXT_LIMIT",
	"CHUNK_SIZE", "CHUNK_OVERLAP", "UPSERT_BATCH_SIZE", "EMBED_BATCH_SIZE",
	"GATEWAY_MAX_RETRIES", "GATEWAY_RATE_LIMIT", "GATEWAY_TIMEOUT", "REQUEST_TIMEOUT",
}

// isolateEnv clears every variable Load reads and restores them after the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string)
	for _, key := range configEnvVars {
		original[key] = os.Getenv(key)
		unsetEnv(key)
	}
	t.Cleanup(func() {
		for key, value := range original {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name: "valid config with required fields",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.QdrantVectorSize == 1536
			},
		},
		{
			name:     "missing QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {},
			wantErr:  true,
		},
		{
			name: "invalid QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "invalid")
			},
			wantErr: true,
		},
		{
			name: "zero QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "0")
			},
			wantErr: true,
		},
		{
			name: "retrieval defaults",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
			},
			checkConfig: func(cfg *Config) bool {
				r := cfg.Retrieval
				return r.KeywordLimit == 5 && r.SemanticTopK == 15 && r.KeywordBoost == 1.5 && r.ContextLimit == 7
			},
		},
		{
			name: "indexing and gateway defaults",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.Indexing.ChunkSize == 1000 &&
					cfg.Indexing.ChunkOverlap == 200 &&
					cfg.Indexing.UpsertBatchSize == 100 &&
					cfg.Gateway.MaxRetries == 3 &&
					cfg.Gateway.RateLimit == 10 &&
					cfg.RequestTimeout == 60*time.Second
			},
		},
		{
			name: "retrieval overrides",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
				setEnv("KEYWORD_LIMIT", "3")
				setEnv("SEMANTIC_TOP_K", "20")
				setEnv("KEYWORD_BOOST", "2")
				setEnv("CONTEXT_LIMIT", "4")
			},
			checkConfig: func(cfg *Config) bool {
				r := cfg.Retrieval
				return r.KeywordLimit == 3 && r.SemanticTopK == 20 && r.KeywordBoost == 2 && r.ContextLimit == 4
			},
		},
		{
			name: "boost below one rejected",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
				setEnv("KEYWORD_BOOST", "0.9")
			},
			wantErr: true,
		},
		{
			name: "overlap not smaller than chunk size rejected",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
				setEnv("CHUNK_SIZE", "500")
				setEnv("CHUNK_OVERLAP", "500")
			},
			wantErr: true,
		},
		{
			name: "zero context limit rejected",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
				setEnv("CONTEXT_LIMIT", "0")
			},
			wantErr: true,
		},
		{
			name: "unknown vector backend rejected",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
				setEnv("VECTOR_BACKEND", "pinecone")
			},
			wantErr: true,
		},
		{
			name: "memory vector backend",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
				setEnv("VECTOR_BACKEND", "MEMORY")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorBackend == VectorBackendMemory
			},
		},
		{
			name: "log level and format",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
				setEnv("LOG_LEVEL", "debug")
				setEnv("LOG_FORMAT", "JSON")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.LogLevel == slog.LevelDebug && cfg.LogFormat == "json"
			},
		},
		{
			name: "invalid log level rejected",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
				setEnv("LOG_LEVEL", "verbose")
			},
			wantErr: true,
		},
		{
			name: "invalid request timeout rejected",
			setupEnv: func(t *testing.T) {
				setEnv("QDRANT_VECTOR_SIZE", "1536")
				setEnv("REQUEST_TIMEOUT", "soon")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			setEnv("DB_PATH", filepath.Join(t.TempDir(), "data", "test.db"))
			tt.setupEnv(t)

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config check failed: %+v", cfg)
			}
		})
	}
}

func TestLoad_CreatesDataDirectory(t *testing.T) {
	isolateEnv(t)
	dbPath := filepath.Join(t.TempDir(), "nested", "data", "goldkey.db")
	setEnv("DB_PATH", dbPath)
	setEnv("QDRANT_VECTOR_SIZE", "1536")

	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("Load() should create data directory: %v", err)
	}
}

func TestGetEnv(t *testing.T) {
	const key = "GOLDKEY_TEST_GETENV"
	unsetEnv(key)
	defer unsetEnv(key)

	if got := getEnv(key, "fallback"); got != "fallback" {
		t.Errorf("getEnv() = %v, want fallback", got)
	}
	setEnv(key, "value")
	if got := getEnv(key, "fallback"); got != "value" {
		t.Errorf("getEnv() = %v, want value", got)
	}
}
