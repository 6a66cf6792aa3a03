package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Task status filters accepted by list operations.
const (
	StatusAll       = "all"
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Task is a user's todo item. Rows are only ever written through the tool
// dispatcher, which scopes every operation to the owning user.
type Task struct {
	ID          surrealmodels.RecordID `json:"id"`
	UserID      string                 `json:"user_id"`
	Title       string                 `json:"title"`
	Description *string                `json:"description,omitempty"`
	Completed   bool                   `json:"completed"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
