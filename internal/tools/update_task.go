package tools

import (
	"context"
	"strings"

	"taskbot/internal/models"
)

// UpdateTaskInput defines the arguments for the update_task tool.
// Nil fields are left unchanged.
type UpdateTaskInput struct {
	TaskID      string  `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func newUpdateTask(deps *Dependencies) Tool {
	return Tool{
		Name:        "update_task",
		Description: "Update an existing task's title or description",
		Mutating:    true,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "The task ID to update",
				},
				"title": map[string]any{
					"type":        "string",
					"description": "New title (optional)",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "New description (optional)",
				},
			},
			"required": []string{"task_id"},
		},
		Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
			var in UpdateTaskInput
			if err := decodeArgs(args, &in); err != nil || in.TaskID == "" {
				return nil, validationError("update_task needs a task_id")
			}
			if in.Title == nil && in.Description == nil {
				return nil, validationError("nothing to update; provide a title or description")
			}

			var title *string
			if in.Title != nil {
				t := clamp(strings.TrimSpace(*in.Title), maxTitleLen)
				if t == "" {
					return nil, validationError("a task title cannot be empty")
				}
				title = &t
			}
			var desc *string
			if in.Description != nil {
				d := clamp(*in.Description, maxDescriptionLen)
				desc = &d
			}

			task, err := deps.Tasks.UpdateTask(ctx, userID, in.TaskID, title, desc)
			if err != nil {
				return nil, err
			}

			deps.Logger.Info("task updated", "user_id", userID, "task_id", in.TaskID)
			return TaskMutationResult{
				TaskID: models.MustRecordIDString(task.ID),
				Status: "updated",
				Title:  task.Title,
			}, nil
		},
	}
}
