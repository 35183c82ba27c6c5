package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationRepo_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)
	require.NoError(t, users.Create(ctx, &UserRecord{ID: "u1"}))
	require.NoError(t, users.Create(ctx, &UserRecord{ID: "u2"}))

	repo := NewConversationRepo(db)
	conv := &ConversationRecord{UserID: "u1", Title: "What is covered?"}
	require.NoError(t, repo.Create(ctx, conv))
	require.NotEmpty(t, conv.ID)

	require.NoError(t, repo.AppendExchange(ctx, conv.ID, []*MessageRecord{
		{Role: "user", Content: "What is covered?"},
		{Role: "assistant", Content: "Collision.", SourcesJSON: `[{"rank":1}]`},
	}))

	got, err := repo.GetForUser(ctx, conv.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "What is covered?", got.Title)

	_, err = repo.GetForUser(ctx, conv.ID, "u2")
	assert.ErrorIs(t, err, ErrNotFound, "other users must not see the conversation")

	msgs, err := repo.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "[]", msgs[0].SourcesJSON)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, `[{"rank":1}]`, msgs[1].SourcesJSON)
}

func TestConversationRepo_ListByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewUserRepo(db).Create(ctx, &UserRecord{ID: "u1"}))

	repo := NewConversationRepo(db)
	first := &ConversationRecord{UserID: "u1", Title: "first"}
	second := &ConversationRecord{UserID: "u1", Title: "second"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	// Touching the older conversation moves it to the top.
	require.NoError(t, repo.AppendExchange(ctx, first.ID, []*MessageRecord{{Role: "user", Content: "again"}}))

	convs, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, first.ID, convs[0].ID)
	assert.Equal(t, second.ID, convs[1].ID)
}

func TestConversationRepo_AppendExchange_UnknownConversation(t *testing.T) {
	repo := NewConversationRepo(newTestDB(t))
	err := repo.AppendExchange(context.Background(), "missing", []*MessageRecord{{Role: "user", Content: "x"}})
	assert.Error(t, err)
}
