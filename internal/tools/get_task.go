package tools

import (
	"context"

	"taskbot/internal/models"
)

// TaskIDInput defines the arguments for tools that address a single task.
type TaskIDInput struct {
	TaskID string `json:"task_id"`
}

func taskIDSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{
				"type":        "string",
				"description": "The task ID",
			},
		},
		"required": []string{"task_id"},
	}
}

func newGetTask(deps *Dependencies) Tool {
	return Tool{
		Name:        "get_task",
		Description: "Get details of a specific task",
		Mutating:    false,
		Parameters:  taskIDSchema(),
		Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
			var in TaskIDInput
			if err := decodeArgs(args, &in); err != nil || in.TaskID == "" {
				return nil, validationError("get_task needs a task_id")
			}

			task, err := deps.Tasks.GetTask(ctx, userID, in.TaskID)
			if err != nil {
				return nil, err
			}

			return TaskDetail{
				TaskID:      models.MustRecordIDString(task.ID),
				Title:       task.Title,
				Description: task.Description,
				Completed:   task.Completed,
				CreatedAt:   task.CreatedAt,
				UpdatedAt:   task.UpdatedAt,
			}, nil
		},
	}
}
