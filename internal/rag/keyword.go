package rag

import (
	"context"
	"strings"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

// FilenameIndex finds documents by filename substring.
type FilenameIndex interface {
	FindByFilenameContains(ctx context.Context, needle string, partition storage.Partition, ownerID string, limit int) ([]storage.DocumentMatch, error)
}

// KeywordMatcher finds documents whose filename contains the query.
type KeywordMatcher struct {
	index FilenameIndex
	limit int
}

// NewKeywordMatcher creates a matcher returning at most limit documents.
func NewKeywordMatcher(index FilenameIndex, limit int) *KeywordMatcher {
	return &KeywordMatcher{index: index, limit: limit}
}

// Match returns documents in scope whose filename contains the query, in store order.
// A lookup failure is logged and treated as no matches.
func (m *KeywordMatcher) Match(ctx context.Context, q Query) []storage.DocumentMatch {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" || m.limit <= 0 {
		return nil
	}

	owner := ""
	if q.Partition == storage.PartitionUser {
		owner = q.OwnerID
	}

	matches, err := m.index.FindByFilenameContains(ctx, needle, q.Partition, owner, m.limit)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "keyword match failed, continuing without keyword boost",
			"partition", q.Partition,
			"error", err,
		)
		return nil
	}
	if len(matches) > m.limit {
		matches = matches[:m.limit]
	}
	return matches
}
