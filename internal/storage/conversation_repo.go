package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_conversation_store.go -package=mocks github.com/dmos82/goldkey-chat-app-sub000/internal/storage ConversationStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationStore defines the interface for conversation history operations.
type ConversationStore interface {
	// Create inserts a conversation. ID and timestamps are filled when empty.
	Create(ctx context.Context, conv *ConversationRecord) error
	// GetForUser returns a conversation owned by userID. Returns ErrNotFound otherwise.
	GetForUser(ctx context.Context, id, userID string) (*ConversationRecord, error)
	// ListByUser returns a user's conversations, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]ConversationRecord, error)
	// AppendExchange appends messages to a conversation and bumps its updated_at.
	AppendExchange(ctx context.Context, conversationID string, messages []*MessageRecord) error
	// ListMessages returns a conversation's messages in insertion order.
	ListMessages(ctx context.Context, conversationID string) ([]MessageRecord, error)
}

// ConversationRepo provides methods for conversation operations.
// It implements the ConversationStore interface.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a new ConversationRepo.
func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create inserts a conversation. ID and timestamps are filled when empty.
func (r *ConversationRepo) Create(ctx context.Context, conv *ConversationRecord) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		conv.ID, conv.UserID, conv.Title, formatTimestamp(now), formatTimestamp(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// GetForUser returns a conversation owned by userID. Returns ErrNotFound otherwise.
func (r *ConversationRepo) GetForUser(ctx context.Context, id, userID string) (*ConversationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?",
		id, userID,
	)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return conv, nil
}

// ListByUser returns a user's conversations, most recently updated first.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID string) ([]ConversationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var convs []ConversationRecord
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return convs, nil
}

// AppendExchange appends messages to a conversation and bumps its updated_at.
func (r *ConversationRepo) AppendExchange(ctx context.Context, conversationID string, messages []*MessageRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, msg := range messages {
		if msg.ID == "" {
			msg.ID = uuid.New().String()
		}
		if msg.SourcesJSON == "" {
			msg.SourcesJSON = "[]"
		}
		msg.ConversationID = conversationID
		msg.CreatedAt = now

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO messages (id, conversation_id, role, content, sources, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			msg.ID, conversationID, msg.Role, msg.Content, msg.SourcesJSON, formatTimestamp(now),
		); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?",
		formatTimestamp(now), conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit messages: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in insertion order.
func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID string) ([]MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, conversation_id, role, content, sources, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at, rowid",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var msgs []MessageRecord
	for rows.Next() {
		var (
			msg       MessageRecord
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.SourcesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if msg.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return msgs, nil
}

func scanConversation(s rowScanner) (*ConversationRecord, error) {
	var (
		conv                 ConversationRecord
		createdAt, updatedAt string
	)
	if err := s.Scan(&conv.ID, &conv.UserID, &conv.Title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if conv.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if conv.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &conv, nil
}
