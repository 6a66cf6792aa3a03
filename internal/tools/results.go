package tools

import (
	"time"

	"taskbot/internal/models"
)

// Input clamps, matching the task store's validation rules.
const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// TaskMutationResult is returned by tools that create, update, complete or
// delete a task.
type TaskMutationResult struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Title  string `json:"title"`
}

// TaskDetail is the full task record returned by get_task.
type TaskDetail struct {
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskSummary is one entry of a list_tasks result.
type TaskSummary struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Completed   bool    `json:"completed"`
}

// TaskListResult is returned by list_tasks.
type TaskListResult struct {
	Tasks []TaskSummary `json:"tasks"`
	Count int           `json:"count"`
}

func summarize(tasks []models.Task) TaskListResult {
	out := TaskListResult{Tasks: make([]TaskSummary, 0, len(tasks)), Count: len(tasks)}
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, TaskSummary{
			ID:          models.MustRecordIDString(t.ID),
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
		})
	}
	return out
}
