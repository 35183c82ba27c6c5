package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/llm"
)

func TestBuildMessages(t *testing.T) {
	history := []HistoryMessage{
		{Role: "User", Content: "first"},
		{Role: "tool", Content: "dropped"},
		{Role: "assistant", Content: ""},
		{Role: "assistant", Content: "reply"},
	}

	got := buildMessages("CTX", history, "now?")

	assert.Len(t, got, 4)
	assert.Equal(t, llm.RoleSystem, got[0].Role)
	assert.True(t, strings.HasSuffix(got[0].Content, "Context:\nCTX"))
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "first"}, got[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "reply"}, got[2])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "now?"}, got[3])
}

func TestConversationTitle(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "short", query: "What is covered?", want: "What is covered?"},
		{name: "collapses whitespace", query: "  what\n\tis   covered ", want: "what is covered"},
		{
			name:  "cut on word boundary",
			query: "Does the commercial auto policy cover rental vehicles abroad?",
			want:  "Does the commercial auto policy cover…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, conversationTitle(tt.query))
		})
	}

	long := strings.Repeat("é", 100)
	title := conversationTitle(long)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, titleLength+1, utf8.RuneCountInString(title))
}
