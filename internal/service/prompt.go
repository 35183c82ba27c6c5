package service

import (
	"fmt"
	"strings"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/llm"
)

const systemPromptTemplate = `You are GoldKey, an assistant that answers questions using the reference documents below.
Answer only from the context. If the context does not contain the answer, say that you could not find it in the available documents.
Mention the document names that support your answer when you can.

Context:
%s`

const titleLength = 40

// buildMessages assembles the system prompt, the usable history turns and the current question.
// History entries need a user or assistant role and non-empty text.
func buildMessages(contextText string, history []HistoryMessage, query string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, contextText),
	})
	for _, h := range history {
		role := strings.ToLower(strings.TrimSpace(h.Role))
		if role != llm.RoleUser && role != llm.RoleAssistant {
			continue
		}
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: h.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})
	return messages
}

// conversationTitle shortens query to about forty characters on a word boundary.
func conversationTitle(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	runes := []rune(q)
	if len(runes) <= titleLength {
		return q
	}
	cut := string(runes[:titleLength])
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + "…"
}
