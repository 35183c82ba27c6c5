package handlers

import (
	"context"
	"net/http"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/library"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// LibrarySyncer re-indexes the system document library.
type LibrarySyncer interface {
	Sync(ctx context.Context) (library.Result, error)
}

// IndexHandler handles HTTP requests for triggering a system library sync.
type IndexHandler struct {
	syncer LibrarySyncer
	users  storage.UserStore
	// done is signalled after each background sync; nil outside tests.
	done chan<- library.Result
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(syncer LibrarySyncer, users storage.UserStore) *IndexHandler {
	return &IndexHandler{syncer: syncer, users: users}
}

// IndexResponse represents the response from the index endpoint.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP handles POST /api/index. Admins only.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := requireAdmin(ctx, h.users, userID); err != nil {
		handleServiceError(ctx, w, err, "Failed to start indexing")
		return
	}

	logger.InfoContext(ctx, "library sync triggered via API")

	// The sync outlives the request, so it runs on a detached context that keeps the logger.
	syncCtx := contextutil.WithLogger(context.WithoutCancel(ctx), logger)
	go func() {
		res, err := h.syncer.Sync(syncCtx)
		if err != nil {
			logger.ErrorContext(syncCtx, "library sync completed with errors", "error", err)
		}
		if h.done != nil {
			h.done <- res
		}
	}()

	writeJSON(ctx, w, http.StatusAccepted, IndexResponse{
		Message: "Library sync started. Check server logs for progress.",
		Status:  "accepted",
	})
}
