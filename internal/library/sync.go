package library

import (
	"context"
	"fmt"
	"os"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// Indexer is the part of the indexing pipeline the syncer drives.
type Indexer interface {
	IndexDocument(ctx context.Context, req indexer.IndexRequest) (*storage.DocumentRecord, error)
	ReindexDocument(ctx context.Context, documentID string, content []byte, mimeType string) (*storage.DocumentRecord, error)
}

// Result summarizes one sync run.
type Result struct {
	Scanned   int `json:"scanned"`
	Indexed   int `json:"indexed"`
	Reindexed int `json:"reindexed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Syncer keeps the system partition in step with a directory of reference documents.
type Syncer struct {
	root      string
	documents storage.DocumentStore
	indexer   Indexer
}

// NewSyncer creates a Syncer for the library rooted at root.
func NewSyncer(root string, documents storage.DocumentStore, idx Indexer) *Syncer {
	return &Syncer{root: root, documents: documents, indexer: idx}
}

// Sync indexes new files and re-indexes changed ones. A file is unchanged when its
// SHA-256 matches the stored hash of a completed document with the same relative path.
// Failures on individual files are logged and counted; they do not stop the run.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	var res Result

	if s.root == "" {
		return res, fmt.Errorf("system library path is not configured")
	}

	files, err := Scan(ctx, s.root)
	if err != nil {
		return res, err
	}
	res.Scanned = len(files)

	existing, err := s.documents.FindByFilter(ctx, storage.DocumentFilter{Partition: storage.PartitionSystem})
	if err != nil {
		return res, fmt.Errorf("failed to list system documents: %w", err)
	}
	byName := make(map[string]storage.DocumentRecord, len(existing))
	for _, doc := range existing {
		// FindByFilter is newest first; keep the newest record per name.
		if _, seen := byName[doc.Filename]; !seen {
			byName[doc.Filename] = doc
		}
	}

	logger.InfoContext(ctx, "starting library sync", "root", s.root, "files", len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		content, err := os.ReadFile(file.AbsPath)
		if err != nil {
			res.Failed++
			logger.ErrorContext(ctx, "failed to read library file", "rel_path", file.RelPath, "error", err)
			continue
		}

		doc, known := byName[file.RelPath]
		switch {
		case known && doc.Status == storage.StatusCompleted && doc.ContentHash == indexer.ContentHash(content):
			res.Unchanged++
			logger.DebugContext(ctx, "skipping unchanged file", "rel_path", file.RelPath)
		case known:
			if _, err := s.indexer.ReindexDocument(ctx, doc.ID, content, ""); err != nil {
				res.Failed++
				logger.ErrorContext(ctx, "failed to re-index library file", "rel_path", file.RelPath, "error", err)
				continue
			}
			res.Reindexed++
		default:
			_, err := s.indexer.IndexDocument(ctx, indexer.IndexRequest{
				Filename:  file.RelPath,
				Content:   content,
				Partition: storage.PartitionSystem,
			})
			if err != nil {
				res.Failed++
				logger.ErrorContext(ctx, "failed to index library file", "rel_path", file.RelPath, "error", err)
				continue
			}
			res.Indexed++
		}
	}

	logger.InfoContext(ctx, "library sync completed",
		"scanned", res.Scanned, "indexed", res.Indexed, "reindexed", res.Reindexed,
		"unchanged", res.Unchanged, "failed", res.Failed)

	if res.Failed > 0 {
		return res, fmt.Errorf("library sync completed with %d errors", res.Failed)
	}
	return res, nil
}
