package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// SearchHandler exposes retrieval without generation.
type SearchHandler struct {
	engine rag.Engine
	users  storage.UserStore
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(engine rag.Engine, users storage.UserStore) *SearchHandler {
	return &SearchHandler{engine: engine, users: users}
}

// SearchRequest represents the HTTP request payload for retrieval.
type SearchRequest struct {
	Query     string `json:"query"`
	Partition string `json:"partition,omitempty"`
	OwnerID   string `json:"owner_id,omitempty"`
}

// SearchResponse carries the assembled context and the evidence behind it.
type SearchResponse struct {
	Context  string             `json:"context"`
	Evidence []rag.EvidenceItem `json:"evidence"`
	// Debug is present when ?debug=true is set.
	Debug *SearchDebug `json:"debug,omitempty"`
}

// SearchDebug exposes the full ranked candidate list.
type SearchDebug struct {
	Candidates     []rag.Candidate         `json:"candidates"`
	KeywordMatches []storage.DocumentMatch `json:"keyword_matches"`
}

// ServeHTTP handles POST /api/search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	partition, err := storage.ParsePartition(req.Partition)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := rag.Query{Text: req.Query, Partition: partition}
	if partition == storage.PartitionUser {
		owner, err := h.resolveOwner(r, userID, req.OwnerID)
		if err != nil {
			handleServiceError(ctx, w, err, "Failed to search documents")
			return
		}
		q.OwnerID = owner
	}

	retrieval, err := h.engine.RetrieveContext(ctx, q)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to search documents")
		return
	}

	resp := SearchResponse{Context: retrieval.ContextText, Evidence: retrieval.Evidence}
	if resp.Evidence == nil {
		resp.Evidence = []rag.EvidenceItem{}
	}
	if r.URL.Query().Get("debug") == "true" {
		resp.Debug = &SearchDebug{Candidates: retrieval.Candidates, KeywordMatches: retrieval.KeywordMatches}
		if resp.Debug.Candidates == nil {
			resp.Debug.Candidates = []rag.Candidate{}
		}
		if resp.Debug.KeywordMatches == nil {
			resp.Debug.KeywordMatches = []storage.DocumentMatch{}
		}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// resolveOwner defaults the owner to the caller; only admins may name someone else.
func (h *SearchHandler) resolveOwner(r *http.Request, userID, ownerID string) (string, error) {
	if ownerID == "" || ownerID == userID {
		return userID, nil
	}
	if err := requireAdmin(r.Context(), h.users, userID); err != nil {
		return "", err
	}
	return ownerID, nil
}
