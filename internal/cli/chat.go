package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatConversationID string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message or start an interactive session",
	Long: `Send one message to TaskBot, or start an interactive session when no
message is given.

Examples:
  taskbot chat "add a task to buy milk"
  taskbot chat "what do I have to do?" --conversation 01JG...
  taskbot chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatConversationID, "conversation", "c", "", "continue an existing conversation")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) > 0 {
		return sendMessage(ctx, strings.Join(args, " "))
	}
	return interactiveSession(ctx)
}

func sendMessage(ctx context.Context, message string) error {
	resp, err := api.Chat(ctx, chatConversationID, message)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}

	// Keep the thread for follow-up messages in interactive mode
	chatConversationID = resp.ConversationID

	if verbose {
		for _, call := range resp.ToolCalls {
			fmt.Printf("[%s]\n", call.Tool)
		}
	}
	fmt.Println(resp.Response)
	return nil
}

func interactiveSession(ctx context.Context) error {
	fmt.Println("TaskBot - chat with your todo list. Type 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		if err := sendMessage(ctx, line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}
