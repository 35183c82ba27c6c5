package indexer

import (
	"context"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
)

// DeleteTask tracks the background removal of a document's vectors.
type DeleteTask struct {
	DocumentID string
	done       chan struct{}
	err        error
}

// StartDelete runs fn in the background and returns a task reporting its outcome.
func StartDelete(ctx context.Context, documentID string, fn func(context.Context) error) *DeleteTask {
	t := &DeleteTask{DocumentID: documentID, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.err = fn(ctx)
		if t.err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to delete document vectors",
				"document_id", documentID, "error", t.err)
		}
	}()
	return t
}

// Done is closed once the vector deletion has finished.
func (t *DeleteTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the deletion finishes or ctx is done, and returns its result.
func (t *DeleteTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
