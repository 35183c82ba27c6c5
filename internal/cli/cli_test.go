package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/library"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

type fakeUsers struct {
	created []*storage.UserRecord
	err     error
}

func (f *fakeUsers) Create(_ context.Context, user *storage.UserRecord) error {
	f.created = append(f.created, user)
	return f.err
}

type fakeIngester struct {
	got indexer.IndexRequest
	err error
}

func (f *fakeIngester) IndexDocument(_ context.Context, req indexer.IndexRequest) (*storage.DocumentRecord, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &storage.DocumentRecord{ID: "doc-1", Filename: req.Filename, ChunkCount: 3}, nil
}

type fakeEngine struct {
	got       rag.Query
	retrieval rag.Retrieval
}

func (f *fakeEngine) RetrieveContext(_ context.Context, q rag.Query) (rag.Retrieval, error) {
	f.got = q
	return f.retrieval, nil
}

type fakeSyncer struct {
	res library.Result
	err error
}

func (f *fakeSyncer) Sync(context.Context) (library.Result, error) {
	return f.res, f.err
}

// run executes the root command with args against svc and returns its output.
func run(t *testing.T, svc Services, args ...string) (string, error) {
	t.Helper()
	configure(svc)
	setup = nil
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configure(Services{})
		userAdmin = false
		ingestPartition, ingestOwner = string(storage.PartitionSystem), ""
		searchPartition, searchOwner, searchJSON = string(storage.PartitionSystem), "", false
	})
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "users")
	assert.Contains(t, names, "ingest")
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "sync-library")
}

func TestUsersAdd(t *testing.T) {
	users := &fakeUsers{}
	out, err := run(t, Services{Users: users}, "users", "add", "alice", "--admin")

	require.NoError(t, err)
	require.Len(t, users.created, 1)
	assert.Equal(t, "alice", users.created[0].ID)
	assert.Equal(t, storage.RoleAdmin, users.created[0].Role)
	assert.Contains(t, out, "Created admin alice")
}

func TestUsersAdd_DefaultRole(t *testing.T) {
	users := &fakeUsers{}
	_, err := run(t, Services{Users: users}, "users", "add", "bob")

	require.NoError(t, err)
	assert.Equal(t, storage.RoleUser, users.created[0].Role)
}

func TestUsersAdd_RequiresOneArg(t *testing.T) {
	_, err := run(t, Services{Users: &fakeUsers{}}, "users", "add")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestIngest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auto-policy.md")
	require.NoError(t, os.WriteFile(path, []byte("# Auto policy"), 0o644))

	t.Run("system partition", func(t *testing.T) {
		ing := &fakeIngester{}
		out, err := run(t, Services{Ingester: ing}, "ingest", path)

		require.NoError(t, err)
		assert.Equal(t, "auto-policy.md", ing.got.Filename)
		assert.Equal(t, storage.PartitionSystem, ing.got.Partition)
		assert.Empty(t, ing.got.OwnerID)
		assert.Equal(t, "# Auto policy", string(ing.got.Content))
		assert.Contains(t, out, "doc-1")
	})

	t.Run("user partition requires owner", func(t *testing.T) {
		_, err := run(t, Services{Ingester: &fakeIngester{}}, "ingest", path, "--partition", "user")
		assert.Error(t, err)
	})

	t.Run("user partition with owner", func(t *testing.T) {
		ing := &fakeIngester{}
		_, err := run(t, Services{Ingester: ing}, "ingest", path, "--partition", "user", "--owner", "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", ing.got.OwnerID)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, Services{Ingester: &fakeIngester{}}, "ingest", filepath.Join(t.TempDir(), "nope.md"))
		assert.Error(t, err)
	})

	t.Run("ingestion failure", func(t *testing.T) {
		_, err := run(t, Services{Ingester: &fakeIngester{err: indexer.ErrIngestFailed}}, "ingest", path)
		assert.ErrorIs(t, err, indexer.ErrIngestFailed)
	})
}

func TestSearch(t *testing.T) {
	engine := &fakeEngine{retrieval: rag.Retrieval{
		ContextText: "Deductible is $500.",
		Evidence: []rag.EvidenceItem{{
			Candidate: rag.Candidate{Filename: "auto-policy.md", ChunkIndex: 2, Score: 0.75, KeywordMatch: true},
			Rank:      1,
		}},
	}}

	out, err := run(t, Services{Retriever: engine}, "search", "auto policy", "--partition", "user", "--owner", "u1")

	require.NoError(t, err)
	assert.Equal(t, rag.Query{Text: "auto policy", Partition: storage.PartitionUser, OwnerID: "u1"}, engine.got)
	assert.Contains(t, out, "[1] auto-policy.md #2 (0.750) [keyword]")
}

func TestSearch_NoResults(t *testing.T) {
	engine := &fakeEngine{retrieval: rag.Retrieval{ContextText: `No relevant context found in system documents for the query "x".`}}
	out, err := run(t, Services{Retriever: engine}, "search", "x")

	require.NoError(t, err)
	assert.Contains(t, out, "No relevant context found")
}

func TestSyncLibrary(t *testing.T) {
	out, err := run(t, Services{Syncer: &fakeSyncer{res: library.Result{Scanned: 4, Indexed: 1, Reindexed: 1, Unchanged: 2}}}, "sync-library")
	require.NoError(t, err)
	assert.Contains(t, out, "Scanned 4, indexed 1, reindexed 1, unchanged 2, failed 0")

	_, err = run(t, Services{Syncer: &fakeSyncer{res: library.Result{Failed: 1}, err: errors.New("1 file failed")}}, "sync-library")
	assert.Error(t, err)
}

func TestCommands_RequireServices(t *testing.T) {
	_, err := run(t, Services{}, "sync-library")
	assert.ErrorIs(t, err, errNotWired)
}

func TestSetupInvokedLazily(t *testing.T) {
	called := false
	cleaned := false
	syncer := &fakeSyncer{}
	fn := func(context.Context) (Services, func(), error) {
		called = true
		return Services{Syncer: syncer}, func() { cleaned = true }, nil
	}

	_, err := run(t, Services{}, "sync-library")
	require.Error(t, err)

	t.Cleanup(func() { setup = nil })
	rootCmd.SetArgs([]string{"sync-library"})
	require.NoError(t, Execute(context.Background(), fn))
	assert.True(t, called)
	assert.True(t, cleaned)
}
