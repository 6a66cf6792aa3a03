// Package cli provides the command-line interface for taskbot.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskbot/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	userID    string
	verbose   bool

	// API client, built in PersistentPreRunE
	api *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "taskbot",
	Short: "Chat with your todo list",
	Long: `TaskBot is a conversational task manager: tell it what you need to do in
plain language and it creates, lists, updates, completes and deletes tasks
for you.

The CLI talks to a running taskbot-server. Identify yourself with --user or
the TASKBOT_USER environment variable.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if userID == "" {
			userID = os.Getenv("TASKBOT_USER")
		}
		if userID == "" {
			return fmt.Errorf("user id required: set --user or TASKBOT_USER")
		}

		api = client.New(serverURL, userID)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "server URL (default TASKBOT_SERVER_URL or http://localhost:8090)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "acting user id (default TASKBOT_USER)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(watchCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
