package tools

import (
	"context"
)

func newDeleteTask(deps *Dependencies) Tool {
	return Tool{
		Name:        "delete_task",
		Description: "Delete a task permanently",
		Mutating:    true,
		Parameters:  taskIDSchema(),
		Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
			var in TaskIDInput
			if err := decodeArgs(args, &in); err != nil || in.TaskID == "" {
				return nil, validationError("delete_task needs a task_id")
			}

			task, err := deps.Tasks.DeleteTask(ctx, userID, in.TaskID)
			if err != nil {
				return nil, err
			}

			deps.Logger.Info("task deleted", "user_id", userID, "task_id", in.TaskID)
			return TaskMutationResult{
				TaskID: in.TaskID,
				Status: "deleted",
				Title:  task.Title,
			}, nil
		},
	}
}
