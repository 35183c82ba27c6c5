package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_user_store.go -package=mocks github.com/dmos82/goldkey-chat-app-sub000/internal/storage UserStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UserStore defines the interface for user operations.
type UserStore interface {
	// Create inserts a user. Role defaults to RoleUser.
	Create(ctx context.Context, user *UserRecord) error
	// GetByID returns a user by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*UserRecord, error)
	// AddUsage accumulates token usage and cost for month ("YYYY-MM").
	// Counters restart when month differs from the stored month.
	AddUsage(ctx context.Context, userID, month string, promptTokens, completionTokens int, cost float64) error
}

// UserRepo provides methods for user operations.
// It implements the UserStore interface.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user. Role defaults to RoleUser.
func (r *UserRepo) Create(ctx context.Context, user *UserRecord) error {
	if user.Role == "" {
		user.Role = RoleUser
	}
	user.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, role, created_at) VALUES (?, ?, ?)",
		user.ID, user.Role, formatTimestamp(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID returns a user by ID. Returns ErrNotFound if not found.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*UserRecord, error) {
	var (
		user      UserRecord
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, role, usage_month, usage_prompt_tokens, usage_completion_tokens, usage_cost, created_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Role, &user.Usage.Month, &user.Usage.PromptTokens,
		&user.Usage.CompletionTokens, &user.Usage.Cost, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if user.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// AddUsage accumulates token usage and cost for month ("YYYY-MM").
// The read-modify-write happens in one statement so concurrent answers never lose an increment.
func (r *UserRepo) AddUsage(ctx context.Context, userID, month string, promptTokens, completionTokens int, cost float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET
			usage_prompt_tokens = CASE WHEN usage_month = ? THEN usage_prompt_tokens + ? ELSE ? END,
			usage_completion_tokens = CASE WHEN usage_month = ? THEN usage_completion_tokens + ? ELSE ? END,
			usage_cost = CASE WHEN usage_month = ? THEN usage_cost + ? ELSE ? END,
			usage_month = ?
		 WHERE id = ?`,
		month, promptTokens, promptTokens,
		month, completionTokens, completionTokens,
		month, cost, cost,
		month, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update usage: %w", err)
	}
	return requireAffected(res)
}
