package library

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/vectorstore"
)

type lengthEmbedder struct{}

func (lengthEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func newSyncer(t *testing.T, root string) (*Syncer, *storage.DocumentRepo, *vectorstore.MemoryStore) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.Migrate(db))

	docs := storage.NewDocumentRepo(db)
	store := vectorstore.NewMemoryStore()
	pipeline := indexer.NewPipeline(docs, storage.NewChunkRepo(db), storage.NewUserRepo(db), lengthEmbedder{}, store, indexer.Options{})
	return NewSyncer(root, docs, pipeline), docs, store
}

func TestSyncer_Sync(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Claims_Guide.md", "# Claims\n\nFile within 30 days.")
	writeFile(t, root, "policies/Auto_Policy.txt", "Collision is covered.")

	syncer, docs, store := newSyncer(t, root)
	ctx := context.Background()

	res, err := syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Scanned: 2, Indexed: 2}, res)
	assert.Equal(t, 2, store.Count("documents"))

	all, err := docs.FindByFilter(ctx, storage.DocumentFilter{Partition: storage.PartitionSystem})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, d := range all {
		assert.Empty(t, d.OwnerID)
		assert.Equal(t, storage.StatusCompleted, d.Status)
	}

	// Second run without changes skips everything.
	res, err = syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Scanned: 2, Unchanged: 2}, res)

	// A changed file is re-indexed in place and a new one is added.
	writeFile(t, root, "policies/Auto_Policy.txt", "Collision and theft are covered.")
	writeFile(t, root, "Glossary.md", "# Terms")
	res, err = syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Scanned: 3, Indexed: 1, Reindexed: 1, Unchanged: 1}, res)

	all, err = docs.FindByFilter(ctx, storage.DocumentFilter{Partition: storage.PartitionSystem})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, store.Count("documents"))
}

func TestSyncer_Sync_CountsFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.md", "# Fine")
	writeFile(t, root, "empty.txt", "   ")

	syncer, _, _ := newSyncer(t, root)
	res, err := syncer.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 1, res.Failed)
}

func TestSyncer_Sync_Unconfigured(t *testing.T) {
	syncer, _, _ := newSyncer(t, "")
	_, err := syncer.Sync(context.Background())
	assert.Error(t, err)
}
