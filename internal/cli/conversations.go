package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List, show or delete conversations",
	Long: `Manage your conversation threads.

Subcommands:
  list    List conversations (default)
  show    Print one conversation's transcript
  delete  Delete a conversation and its messages

Examples:
  taskbot conversations
  taskbot conversations show 01JG...
  taskbot conversations delete 01JG...`,
	RunE: runListConversations,
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	RunE:  runListConversations,
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one conversation's transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowConversation,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteConversation,
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
}

func runListConversations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	conversations, err := api.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	if len(conversations) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	fmt.Printf("Conversations (%d):\n\n", len(conversations))
	for _, conv := range conversations {
		title := "(untitled)"
		if conv.Title != nil && *conv.Title != "" {
			title = *conv.Title
		}
		fmt.Printf("- %s (%v, updated %s)\n", title, conv.ID, conv.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runShowConversation(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	conv, messages, err := api.GetConversation(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}

	if conv.Title != nil && *conv.Title != "" {
		fmt.Printf("%s\n\n", *conv.Title)
	}
	for _, msg := range messages {
		fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
	}
	return nil
}

func runDeleteConversation(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := api.DeleteConversation(ctx, args[0]); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	fmt.Println("Conversation deleted.")
	return nil
}
