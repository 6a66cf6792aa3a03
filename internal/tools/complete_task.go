package tools

import (
	"context"

	"taskbot/internal/models"
)

func newCompleteTask(deps *Dependencies) Tool {
	return Tool{
		Name:        "complete_task",
		Description: "Mark a task as completed",
		Mutating:    true,
		Parameters:  taskIDSchema(),
		Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
			var in TaskIDInput
			if err := decodeArgs(args, &in); err != nil || in.TaskID == "" {
				return nil, validationError("complete_task needs a task_id")
			}

			task, err := deps.Tasks.CompleteTask(ctx, userID, in.TaskID)
			if err != nil {
				return nil, err
			}

			deps.Logger.Info("task completed", "user_id", userID, "task_id", in.TaskID)
			return TaskMutationResult{
				TaskID: models.MustRecordIDString(task.ID),
				Status: "completed",
				Title:  task.Title,
			}, nil
		},
	}
}
