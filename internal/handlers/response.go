package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/llm"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/service"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// processingFailedMessage is shown for fatal retrieval or generation failures.
const processingFailedMessage = "Could not process your question"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// handleServiceError maps domain errors to HTTP status codes and responses.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, indexer.ErrInvalidRequest),
		errors.Is(err, rag.ErrEmptyQuery),
		errors.Is(err, rag.ErrInvalidPartition),
		errors.Is(err, rag.ErrOwnerRequired):
		logger.WarnContext(ctx, "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrForbidden), errors.Is(err, indexer.ErrForbidden):
		logger.WarnContext(ctx, "forbidden", "error", err)
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, service.ErrRetrieval), errors.Is(err, service.ErrGeneration):
		logger.ErrorContext(ctx, "chat processing failed", "error", err)
		writeError(w, http.StatusBadGateway, processingFailedMessage)
	case isGatewayError(err):
		logger.ErrorContext(ctx, "external service error", "error", err)
		writeError(w, http.StatusBadGateway, "External service error")
	default:
		logger.ErrorContext(ctx, "service error", "error", err)
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

func isGatewayError(err error) bool {
	var embErr *llm.EmbeddingError
	var compErr *llm.CompletionError
	return errors.As(err, &embErr) || errors.As(err, &compErr) ||
		errors.Is(err, rag.ErrEmbedding) || errors.Is(err, rag.ErrVectorSearch)
}

func errForbidden(err error) error {
	return fmt.Errorf("%w: %w", service.ErrForbidden, err)
}

// requireUser returns the caller id placed in the context by the identity middleware,
// writing a 401 when it is missing.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := contextutil.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing user identity")
		return "", false
	}
	return userID, true
}

// requireAdmin returns an error matching service.ErrForbidden unless userID is a known admin.
func requireAdmin(ctx context.Context, users storage.UserStore, userID string) error {
	user, err := users.GetByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return errForbidden(errors.New("unknown user"))
	}
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return errForbidden(errors.New("admin role required"))
	}
	return nil
}
