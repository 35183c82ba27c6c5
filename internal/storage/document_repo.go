package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks github.com/dmos82/goldkey-chat-app-sub000/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentStore defines the interface for document metadata operations.
type DocumentStore interface {
	// Create inserts a document row. ID, StorageName and timestamps are filled when empty.
	Create(ctx context.Context, doc *DocumentRecord) error
	// GetByID returns a document by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// FindByFilter lists documents matching the filter, newest first.
	FindByFilter(ctx context.Context, filter DocumentFilter) ([]DocumentRecord, error)
	// UpdateStatus records the ingestion outcome for a document.
	UpdateStatus(ctx context.Context, id string, status DocumentStatus, chunkCount int, errorMessage string) error
	// UpdateContent replaces size, hash and mime type ahead of a re-index.
	UpdateContent(ctx context.Context, id string, sizeBytes int64, contentHash, mimeType string) error
	// DeleteByID removes a document row and, by cascade, its chunks.
	DeleteByID(ctx context.Context, id string) error
	// FindByFilenameContains returns up to limit documents in scope whose filename contains
	// the lowercased needle.
	FindByFilenameContains(ctx context.Context, needle string, partition Partition, ownerID string, limit int) ([]DocumentMatch, error)
	// CountByStatus returns document counts grouped by status.
	CountByStatus(ctx context.Context) (map[DocumentStatus]int, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = "id, filename, storage_name, size_bytes, mime_type, source, user_id, status, chunk_count, error_message, content_hash, created_at, updated_at"

// Create inserts a document row. ID, StorageName and timestamps are filled when empty.
func (r *DocumentRepo) Create(ctx context.Context, doc *DocumentRecord) error {
	if !doc.Partition.Valid() {
		return fmt.Errorf("invalid partition %q", doc.Partition)
	}
	if doc.Partition == PartitionUser && doc.OwnerID == "" {
		return errors.New("user documents require an owner")
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.StorageName == "" {
		doc.StorageName = fmt.Sprintf("%s-%s", doc.ID, doc.Filename)
	}
	if doc.Status == "" {
		doc.Status = StatusProcessing
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	var owner sql.NullString
	if doc.Partition == PartitionUser {
		owner = sql.NullString{String: doc.OwnerID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.StorageName, doc.SizeBytes, doc.MimeType,
		string(doc.Partition), owner, string(doc.Status), doc.ChunkCount, doc.ErrorMessage,
		doc.ContentHash, formatTimestamp(now), formatTimestamp(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID returns a document by ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

// FindByFilter lists documents matching the filter, newest first.
func (r *DocumentRepo) FindByFilter(ctx context.Context, filter DocumentFilter) ([]DocumentRecord, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Partition != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, string(filter.Partition))
	}
	if filter.OwnerID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Filename != "" {
		clauses = append(clauses, "filename = ?")
		args = append(args, filter.Filename)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT " + documentColumns + " FROM documents"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// UpdateStatus records the ingestion outcome for a document.
func (r *DocumentRepo) UpdateStatus(ctx context.Context, id string, status DocumentStatus, chunkCount int, errorMessage string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, chunk_count = ?, error_message = ?, updated_at = ? WHERE id = ?",
		string(status), chunkCount, errorMessage, formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return requireAffected(res)
}

// UpdateContent replaces size, hash and mime type ahead of a re-index.
func (r *DocumentRepo) UpdateContent(ctx context.Context, id string, sizeBytes int64, contentHash, mimeType string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE documents SET size_bytes = ?, content_hash = ?, mime_type = ?, updated_at = ? WHERE id = ?",
		sizeBytes, contentHash, mimeType, formatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document content: %w", err)
	}
	return requireAffected(res)
}

// DeleteByID removes a document row and, by cascade, its chunks.
func (r *DocumentRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireAffected(res)
}

// FindByFilenameContains returns up to limit documents in scope whose filename contains
// needle, ignoring case. Underscores and hyphens compare equal to spaces, so
// "acme invoice" finds "Acme_Invoice_2023.pdf". The user partition requires ownerID.
func (r *DocumentRepo) FindByFilenameContains(ctx context.Context, needle string, partition Partition, ownerID string, limit int) ([]DocumentMatch, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT id, filename FROM documents
		WHERE instr(replace(replace(lower(filename), '_', ' '), '-', ' '), ?) > 0 AND source = ?`
	args := []any{filenameSeparators.Replace(strings.ToLower(needle)), string(partition)}
	if partition == PartitionUser {
		if ownerID == "" {
			return nil, errors.New("owner required for user partition")
		}
		query += " AND user_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents by filename: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var matches []DocumentMatch
	for rows.Next() {
		var m DocumentMatch
		if err := rows.Scan(&m.ID, &m.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan document match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return matches, nil
}

// CountByStatus returns document counts grouped by status.
func (r *DocumentRepo) CountByStatus(ctx context.Context) (map[DocumentStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM documents GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[DocumentStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan document count: %w", err)
		}
		counts[DocumentStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}

var filenameSeparators = strings.NewReplacer("_", " ", "-", " ")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*DocumentRecord, error) {
	var (
		doc                  DocumentRecord
		source, status       string
		owner                sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&doc.ID, &doc.Filename, &doc.StorageName, &doc.SizeBytes, &doc.MimeType,
		&source, &owner, &status, &doc.ChunkCount, &doc.ErrorMessage, &doc.ContentHash,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	doc.Partition = Partition(source)
	doc.OwnerID = owner.String
	doc.Status = DocumentStatus(status)

	var err error
	if doc.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
