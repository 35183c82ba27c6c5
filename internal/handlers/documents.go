package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// maxUploadBytes caps a single document upload.
const maxUploadBytes = 32 << 20

// DocumentIndexer is the part of the indexing pipeline the document endpoints use.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, req indexer.IndexRequest) (*storage.DocumentRecord, error)
	DeleteDocument(ctx context.Context, requesterID, documentID string) (*indexer.DeleteTask, error)
}

// DocumentHandler serves document upload, listing and deletion.
type DocumentHandler struct {
	documents storage.DocumentStore
	users     storage.UserStore
	indexer   DocumentIndexer
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documents storage.DocumentStore, users storage.UserStore, idx DocumentIndexer) *DocumentHandler {
	return &DocumentHandler{documents: documents, users: users, indexer: idx}
}

// DocumentResponse is the public view of a document record.
type DocumentResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type,omitempty"`
	Partition    string    `json:"partition"`
	OwnerID      string    `json:"owner_id,omitempty"`
	Status       string    `json:"status"`
	ChunkCount   int       `json:"chunk_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toDocumentResponse(d *storage.DocumentRecord) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID,
		Filename:     d.Filename,
		SizeBytes:    d.SizeBytes,
		MimeType:     d.MimeType,
		Partition:    string(d.Partition),
		OwnerID:      d.OwnerID,
		Status:       string(d.Status),
		ChunkCount:   d.ChunkCount,
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// DeleteResponse reports a document deletion.
type DeleteResponse struct {
	ID string `json:"id"`
	// VectorDeletion is "pending", "completed" or "failed".
	VectorDeletion string `json:"vector_deletion"`
	Error          string `json:"error,omitempty"`
}

// List handles GET /api/documents?partition=user|system[&owner_id=...].
// User-partition listings default to the caller; admins may name another owner.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	partition, err := storage.ParsePartition(r.URL.Query().Get("partition"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := storage.DocumentFilter{Partition: partition}
	if partition == storage.PartitionUser {
		owner := r.URL.Query().Get("owner_id")
		if owner == "" {
			owner = userID
		}
		if owner != userID {
			if err := requireAdmin(ctx, h.users, userID); err != nil {
				handleServiceError(ctx, w, err, "Failed to list documents")
				return
			}
		}
		filter.OwnerID = owner
	}

	docs, err := h.documents.FindByFilter(ctx, filter)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

// Upload handles POST /api/documents (multipart form, field "file").
// The optional "partition" field defaults to user; system uploads require an admin.
// Responds 201 when the document was indexed and 422 with the failed record otherwise.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid upload", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		logger.WarnContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	partitionValue := r.FormValue("partition")
	if partitionValue == "" {
		partitionValue = string(storage.PartitionUser)
	}
	partition, err := storage.ParsePartition(partitionValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := indexer.IndexRequest{
		Filename:  header.Filename,
		MimeType:  header.Header.Get("Content-Type"),
		Content:   content,
		Partition: partition,
	}
	if partition == storage.PartitionSystem {
		if err := requireAdmin(ctx, h.users, userID); err != nil {
			handleServiceError(ctx, w, err, "Failed to upload document")
			return
		}
	} else {
		req.OwnerID = userID
	}

	doc, err := h.indexer.IndexDocument(ctx, req)
	if err != nil {
		if doc != nil && errors.Is(err, indexer.ErrIngestFailed) {
			writeJSON(ctx, w, http.StatusUnprocessableEntity, toDocumentResponse(doc))
			return
		}
		handleServiceError(ctx, w, err, "Failed to upload document")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toDocumentResponse(doc))
}

// Delete handles DELETE /api/documents/{id}. With ?wait=true the response reports the
// outcome of vector deletion; otherwise it is returned as pending.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	task, err := h.indexer.DeleteDocument(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to delete document")
		return
	}

	resp := DeleteResponse{ID: task.DocumentID, VectorDeletion: "pending"}
	if r.URL.Query().Get("wait") != "true" {
		writeJSON(ctx, w, http.StatusAccepted, resp)
		return
	}

	if err := task.Wait(ctx); err != nil {
		resp.VectorDeletion, resp.Error = "failed", err.Error()
	} else {
		resp.VectorDeletion = "completed"
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
