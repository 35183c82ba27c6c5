package storage

import (
	"fmt"
	"time"
)

// Partition is the document scope: the shared knowledge base or a user's private uploads.
type Partition string

const (
	PartitionSystem Partition = "system"
	PartitionUser   Partition = "user"
)

// Valid reports whether p is a known partition.
func (p Partition) Valid() bool {
	return p == PartitionSystem || p == PartitionUser
}

// ParsePartition converts s to a Partition. An empty string selects the system partition.
func ParsePartition(s string) (Partition, error) {
	if s == "" {
		return PartitionSystem, nil
	}
	p := Partition(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown partition %q", s)
	}
	return p, nil
}

// DocumentStatus tracks a document through ingestion.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserRecord is a caller known to the service. Identity itself is managed upstream.
type UserRecord struct {
	ID        string
	Role      string
	Usage     MonthlyUsage
	CreatedAt time.Time
}

// IsAdmin reports whether the user may act on documents they do not own.
func (u *UserRecord) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// MonthlyUsage is the running token/cost accumulator for one calendar month.
type MonthlyUsage struct {
	Month            string // YYYY-MM
	PromptTokens     int64
	CompletionTokens int64
	Cost             float64
}

// DocumentRecord is the metadata row for an uploaded file.
type DocumentRecord struct {
	ID           string
	Filename     string // display name
	StorageName  string // opaque, collision-resistant
	SizeBytes    int64
	MimeType     string
	Partition    Partition
	OwnerID      string // empty for the system partition
	Status       DocumentStatus
	ChunkCount   int
	ErrorMessage string
	ContentHash  string // SHA256 hex of the uploaded bytes
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DocumentMatch is a keyword hit on a document filename.
type DocumentMatch struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// DocumentFilter narrows FindByFilter. Zero-valued fields are ignored.
type DocumentFilter struct {
	Partition Partition
	OwnerID   string
	Filename  string
	Status    DocumentStatus
}

// ChunkRecord is a chunk of document text, identified by {documentId}_chunk_{index}.
type ChunkRecord struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
}

// ConversationRecord groups the messages of one chat thread.
type ConversationRecord struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRecord is a single turn within a conversation.
type MessageRecord struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	SourcesJSON    string // JSON array of evidence items; "[]" for user turns
	CreatedAt      time.Time
}

// Fixed-width so that lexical ORDER BY on the column matches chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		// Rows written by SQLite defaults use the DATETIME layout.
		t, err = time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
	}
	return t, nil
}
