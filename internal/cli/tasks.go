package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var tasksStatus string

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List your tasks",
	Long: `List your tasks directly, without going through the model.

Examples:
  taskbot tasks
  taskbot tasks --status pending
  taskbot tasks --status completed`,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().StringVarP(&tasksStatus, "status", "t", "all", "filter: all, pending or completed")
}

func runTasks(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	tasks, err := api.ListTasks(ctx, tasksStatus)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	fmt.Printf("Tasks (%d):\n\n", len(tasks))
	for _, task := range tasks {
		mark := "[ ]"
		if task.Completed {
			mark = "[x]"
		}
		fmt.Printf("%s %s (%v)\n", mark, task.Title, task.ID)
		if verbose && task.Description != nil && *task.Description != "" {
			fmt.Printf("    %s\n", *task.Description)
		}
	}
	return nil
}
