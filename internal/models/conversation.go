// Package models defines data structures for the TaskBot chat store.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation represents a persistent chat thread owned by a single user.
type Conversation struct {
	ID        surrealmodels.RecordID `json:"id"`
	UserID    string                 `json:"user_id"`
	Title     *string                `json:"title,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Message represents a single chat message within a conversation.
// Messages are append-only: once written they are never updated or deleted
// individually. Record IDs are monotonic ULIDs, so lexical ID order is
// write order even when two messages land in the same millisecond.
type Message struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	Role         string                 `json:"role"`
	Content      string                 `json:"content"`
	CreatedAt    time.Time              `json:"created_at"`
}
