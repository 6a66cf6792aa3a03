// Package tools provides the closed task-tool registry and dispatcher.
package tools

import (
	"context"
	"log/slog"

	"taskbot/internal/models"
)

// TaskStore is the task CRUD contract tools execute against. Every operation
// is scoped to the requesting user; implementations must treat a foreign
// task and a missing task identically (ErrNotFound from internal/db).
type TaskStore interface {
	CreateTask(ctx context.Context, userID, title string, description *string) (*models.Task, error)
	ListTasks(ctx context.Context, userID, status string) ([]models.Task, error)
	GetTask(ctx context.Context, userID, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, userID, id string, title, description *string) (*models.Task, error)
	CompleteTask(ctx context.Context, userID, id string) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, id string) (*models.Task, error)
}

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Tasks  TaskStore
	Logger *slog.Logger
}
