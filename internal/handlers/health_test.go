package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus int
		wantIssues []string
	}{
		{
			name:       "all healthy",
			checks:     map[string]CheckFunc{"database": ok, "vector_store": ok},
			wantStatus: http.StatusOK,
		},
		{
			name:       "vector store down",
			checks:     map[string]CheckFunc{"database": ok, "vector_store": down},
			wantStatus: http.StatusServiceUnavailable,
			wantIssues: []string{"vector_store_unavailable"},
		},
		{
			name:       "everything down",
			checks:     map[string]CheckFunc{"vector_store": down, "database": down},
			wantStatus: http.StatusServiceUnavailable,
			wantIssues: []string{"database_unavailable", "vector_store_unavailable"},
		},
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.checks).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if len(resp.Issues) != len(tt.wantIssues) {
				t.Fatalf("Issues = %v, want %v", resp.Issues, tt.wantIssues)
			}
			for i := range tt.wantIssues {
				if resp.Issues[i] != tt.wantIssues[i] {
					t.Errorf("Issues[%d] = %q, want %q", i, resp.Issues[i], tt.wantIssues[i])
				}
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("Checks = %v", resp.Checks)
			}
		})
	}
}

func TestHealthHandler_ChecksHonourTimeout(t *testing.T) {
	h := NewHealthHandler(map[string]CheckFunc{
		"database": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	h.healthCheckTimeout = 0

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ServeHTTP() status = %d, want 503", w.Code)
	}
}
