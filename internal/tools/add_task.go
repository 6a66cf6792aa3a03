package tools

import (
	"context"
	"strings"

	"taskbot/internal/models"
)

// AddTaskInput defines the arguments for the add_task tool.
type AddTaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// newAddTask creates the add_task tool. Titles are clamped to 200 runes,
// descriptions to 1000.
func newAddTask(deps *Dependencies) Tool {
	return Tool{
		Name:        "add_task",
		Description: "Create a new task for the user",
		Mutating:    true,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "The task title (1-200 chars)",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Optional task description",
				},
			},
			"required": []string{"title"},
		},
		Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
			var in AddTaskInput
			if err := decodeArgs(args, &in); err != nil {
				return nil, validationError("add_task arguments could not be parsed")
			}

			in.Title = strings.TrimSpace(in.Title)
			if in.Title == "" {
				return nil, validationError("a task needs a title")
			}

			title := clamp(in.Title, maxTitleLen)
			var desc *string
			if in.Description != nil && *in.Description != "" {
				d := clamp(*in.Description, maxDescriptionLen)
				desc = &d
			}

			task, err := deps.Tasks.CreateTask(ctx, userID, title, desc)
			if err != nil {
				return nil, err
			}

			deps.Logger.Info("task created", "user_id", userID, "title", task.Title)
			return TaskMutationResult{
				TaskID: models.MustRecordIDString(task.ID),
				Status: "created",
				Title:  task.Title,
			}, nil
		},
	}
}
