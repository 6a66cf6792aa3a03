package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskbot/internal/client"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream your task changes live",
	Long: `Subscribe to the server's change feed and print every task mutation as
it happens. Events are best-effort: changes made while disconnected are not
replayed. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Watching for task changes... (Ctrl-C to stop)")

	err := api.WatchEvents(ctx, func(change client.TaskChange) error {
		fmt.Printf("%s %s", change.OccurredAt.Format("15:04:05"), change.Tool)
		if change.TaskID != "" {
			fmt.Printf(" %s", change.TaskID)
		}
		fmt.Println()
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
