package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/vectorstore"
)

var (
	// ErrInvalidRequest is returned when an upload is missing required fields.
	ErrInvalidRequest = errors.New("invalid index request")
	// ErrForbidden is returned when the requester may not modify a document.
	ErrForbidden = errors.New("not allowed to modify document")
	// ErrIngestFailed wraps the cause of a document ending in the failed state.
	ErrIngestFailed = errors.New("document ingestion failed")
)

// BatchEmbedder embeds several texts in one call, preserving order.
type BatchEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Options holds the pipeline tunables. Zero values select the defaults.
type Options struct {
	Collection      string
	ChunkSize       int
	ChunkOverlap    int
	EmbedBatchSize  int
	UpsertBatchSize int
}

// Pipeline turns uploads into stored chunks and vector points.
type Pipeline struct {
	documents   storage.DocumentStore
	chunks      storage.ChunkStore
	users       storage.UserStore
	embedder    BatchEmbedder
	vectorStore vectorstore.VectorStore
	chunker     *Chunker
	collection  string
	embedBatch  int
	upsertBatch int
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	users storage.UserStore,
	embedder BatchEmbedder,
	vectorStore vectorstore.VectorStore,
	opts Options,
) *Pipeline {
	if opts.Collection == "" {
		opts.Collection = "documents"
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 64
	}
	if opts.UpsertBatchSize <= 0 {
		opts.UpsertBatchSize = 100
	}
	return &Pipeline{
		documents:   documents,
		chunks:      chunks,
		users:       users,
		embedder:    embedder,
		vectorStore: vectorStore,
		chunker:     NewChunker(opts.ChunkSize, opts.ChunkOverlap),
		collection:  opts.Collection,
		embedBatch:  opts.EmbedBatchSize,
		upsertBatch: opts.UpsertBatchSize,
	}
}

// IndexDocument records an upload and indexes it.
// The returned record reflects the final status. When ingestion fails the record is
// still returned, in the failed state, together with an error wrapping ErrIngestFailed.
func (p *Pipeline) IndexDocument(ctx context.Context, req IndexRequest) (*storage.DocumentRecord, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidRequest)
	}
	if req.Partition == "" {
		req.Partition = storage.PartitionSystem
	}
	if !req.Partition.Valid() {
		return nil, fmt.Errorf("%w: unknown partition %q", ErrInvalidRequest, req.Partition)
	}
	if req.Partition == storage.PartitionUser && req.OwnerID == "" {
		return nil, fmt.Errorf("%w: user documents require an owner", ErrInvalidRequest)
	}
	if req.Partition == storage.PartitionSystem {
		req.OwnerID = ""
	}

	doc := &storage.DocumentRecord{
		Filename:    req.Filename,
		SizeBytes:   int64(len(req.Content)),
		MimeType:    req.MimeType,
		Partition:   req.Partition,
		OwnerID:     req.OwnerID,
		Status:      storage.StatusProcessing,
		ContentHash: ContentHash(req.Content),
	}
	if err := p.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	if err := p.ingest(ctx, doc, req.Content); err != nil {
		return doc, err
	}
	return doc, nil
}

// ReindexDocument replaces a document's content. Existing chunk rows and vectors are
// removed before the new ones are written.
func (p *Pipeline) ReindexDocument(ctx context.Context, documentID string, content []byte, mimeType string) (*storage.DocumentRecord, error) {
	doc, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	if err := p.removeChunks(ctx, doc.ID); err != nil {
		return nil, err
	}

	if mimeType == "" {
		mimeType = doc.MimeType
	}
	doc.SizeBytes = int64(len(content))
	doc.ContentHash = ContentHash(content)
	doc.MimeType = mimeType
	if err := p.documents.UpdateContent(ctx, doc.ID, doc.SizeBytes, doc.ContentHash, doc.MimeType); err != nil {
		return nil, fmt.Errorf("failed to update document content: %w", err)
	}
	if err := p.documents.UpdateStatus(ctx, doc.ID, storage.StatusProcessing, 0, ""); err != nil {
		return nil, fmt.Errorf("failed to reset document status: %w", err)
	}
	doc.Status, doc.ChunkCount, doc.ErrorMessage = storage.StatusProcessing, 0, ""

	if err := p.ingest(ctx, doc, content); err != nil {
		return doc, err
	}
	return doc, nil
}

// ingest extracts, chunks, embeds and stores content for doc, then records the outcome.
func (p *Pipeline) ingest(ctx context.Context, doc *storage.DocumentRecord, content []byte) error {
	logger := contextutil.LoggerFromContext(ctx)

	count, err := p.store(ctx, doc, content)
	if err != nil {
		logger.ErrorContext(ctx, "failed to index document", "document_id", doc.ID, "filename", doc.Filename, "error", err)
		doc.Status, doc.ErrorMessage = storage.StatusFailed, err.Error()
		if uerr := p.documents.UpdateStatus(ctx, doc.ID, storage.StatusFailed, 0, doc.ErrorMessage); uerr != nil {
			logger.ErrorContext(ctx, "failed to mark document failed", "document_id", doc.ID, "error", uerr)
		}
		return fmt.Errorf("%w: %w", ErrIngestFailed, err)
	}

	doc.Status, doc.ChunkCount = storage.StatusCompleted, count
	if err := p.documents.UpdateStatus(ctx, doc.ID, storage.StatusCompleted, count, ""); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}
	logger.InfoContext(ctx, "indexed document", "document_id", doc.ID, "filename", doc.Filename, "partition", doc.Partition, "chunks", count)
	return nil
}

func (p *Pipeline) store(ctx context.Context, doc *storage.DocumentRecord, content []byte) (int, error) {
	chunks, err := p.chunker.Chunk(content, doc.Filename, doc.MimeType)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, errors.New("document contains no text")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	records := make([]*storage.ChunkRecord, len(chunks))
	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		id := ChunkID(doc.ID, c.Index)
		records[i] = &storage.ChunkRecord{ID: id, DocumentID: doc.ID, ChunkIndex: c.Index, Text: c.Text}
		points[i] = vectorstore.Point{
			ID:  id,
			Vec: vectors[i],
			Payload: vectorstore.Payload{
				ChunkID:    id,
				DocumentID: doc.ID,
				Filename:   doc.Filename,
				ChunkIndex: c.Index,
				Partition:  string(doc.Partition),
				OwnerID:    doc.OwnerID,
				Text:       c.Text,
			},
		}
	}

	if err := p.chunks.InsertBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to save chunks: %w", err)
	}

	// Batches are written in order; a failure leaves earlier batches in place.
	for start := 0; start < len(points); start += p.upsertBatch {
		end := min(start+p.upsertBatch, len(points))
		if err := p.vectorStore.Upsert(ctx, p.collection, points[start:end]); err != nil {
			// Vectors already written stay behind; the chunk rows go so a failed document holds none.
			if derr := p.chunks.DeleteByDocument(ctx, doc.ID); derr != nil {
				contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to remove chunks of failed document",
					"document_id", doc.ID, "error", derr)
			}
			return 0, fmt.Errorf("failed to upsert vectors %d-%d: %w", start, end-1, err)
		}
	}
	return len(chunks), nil
}

func (p *Pipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.embedBatch {
		end := min(start+p.embedBatch, len(texts))
		batch, err := p.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// removeChunks deletes a document's vectors and chunk rows.
func (p *Pipeline) removeChunks(ctx context.Context, documentID string) error {
	if err := p.vectorStore.DeleteByFilter(ctx, p.collection, vectorstore.Filter{DocumentID: documentID}); err != nil {
		return fmt.Errorf("failed to delete old vectors: %w", err)
	}
	if err := p.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}
	return nil
}

// DeleteDocument removes a document. Only its owner or an admin may delete a user
// document; system documents require an admin. Vector deletion runs in the background
// and is reported through the returned task. Metadata is removed regardless of its outcome.
func (p *Pipeline) DeleteDocument(ctx context.Context, requesterID, documentID string) (*DeleteTask, error) {
	doc, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	requester, err := p.users.GetByID(ctx, requesterID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}
	if !canModify(requester, doc) {
		return nil, ErrForbidden
	}

	task := StartDelete(context.WithoutCancel(ctx), doc.ID, func(ctx context.Context) error {
		return p.vectorStore.DeleteByFilter(ctx, p.collection, vectorstore.Filter{DocumentID: doc.ID})
	})

	if err := p.documents.DeleteByID(ctx, doc.ID); err != nil {
		return task, fmt.Errorf("failed to delete document: %w", err)
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "deleted document", "document_id", doc.ID, "requester", requesterID)
	return task, nil
}

func canModify(user *storage.UserRecord, doc *storage.DocumentRecord) bool {
	if user.IsAdmin() {
		return true
	}
	return doc.Partition == storage.PartitionUser && doc.OwnerID == user.ID
}

// ContentHash returns the SHA-256 hex digest of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
