// Package cli implements goldkeyctl, the operator command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/library"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// UserCreator registers callers.
type UserCreator interface {
	Create(ctx context.Context, user *storage.UserRecord) error
}

// DocumentIngester indexes a single file.
type DocumentIngester interface {
	IndexDocument(ctx context.Context, req indexer.IndexRequest) (*storage.DocumentRecord, error)
}

// LibrarySyncer re-indexes the system library.
type LibrarySyncer interface {
	Sync(ctx context.Context) (library.Result, error)
}

// Services are the backends the commands operate on.
type Services struct {
	Users     UserCreator
	Ingester  DocumentIngester
	Retriever rag.Engine
	Syncer    LibrarySyncer
}

// SetupFunc builds Services on first use. The returned cleanup runs once the command finishes.
type SetupFunc func(ctx context.Context) (Services, func(), error)

var errNotWired = errors.New("service not configured")

var (
	userService   UserCreator
	ingestService DocumentIngester
	searchService rag.Engine
	syncService   LibrarySyncer
	setup         SetupFunc
	cleanup       func()
)

var rootCmd = &cobra.Command{
	Use:           "goldkeyctl",
	Short:         "Operate the GoldKey document chat backend",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if setup == nil || !needsServices(cmd) {
			return nil
		}
		svc, done, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		configure(svc)
		cleanup = done
		return nil
	},
}

// needsServices reports whether cmd is a runnable leaf rather than help or a group.
func needsServices(cmd *cobra.Command) bool {
	return cmd.Runnable() && cmd.Name() != "help"
}

func configure(svc Services) {
	userService = svc.Users
	ingestService = svc.Ingester
	searchService = svc.Retriever
	syncService = svc.Syncer
}

// Execute runs the command line. setup is invoked lazily by commands that need services.
func Execute(ctx context.Context, fn SetupFunc) error {
	setup = fn
	defer func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}
