package tools

import (
	"context"

	"taskbot/internal/models"
)

// ListTasksInput defines the arguments for the list_tasks tool.
type ListTasksInput struct {
	Status string `json:"status,omitempty"`
}

func newListTasks(deps *Dependencies) Tool {
	return Tool{
		Name:        "list_tasks",
		Description: "List the user's tasks, optionally filtered by status",
		Mutating:    false,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"enum":        []string{models.StatusAll, models.StatusPending, models.StatusCompleted},
					"description": "Filter by status: 'all', 'pending', or 'completed'",
				},
			},
		},
		Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
			var in ListTasksInput
			if err := decodeArgs(args, &in); err != nil {
				return nil, validationError("list_tasks arguments could not be parsed")
			}

			status := in.Status
			switch status {
			case "", models.StatusAll, models.StatusPending, models.StatusCompleted:
			default:
				return nil, validationError("status must be 'all', 'pending' or 'completed'")
			}

			tasks, err := deps.Tasks.ListTasks(ctx, userID, status)
			if err != nil {
				return nil, err
			}

			return summarize(tasks), nil
		},
	}
}
