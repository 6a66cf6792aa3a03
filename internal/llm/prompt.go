package llm

import (
	"github.com/tmc/langchaingo/llms"

	"taskbot/internal/models"
)

// SystemPrompt holds TaskBot's standing instructions. Task access control is
// enforced by the dispatcher, not by the model; the prompt only shapes tone
// and tool selection.
const SystemPrompt = `You are TaskBot, a friendly and helpful task management assistant.

## Your Capabilities
You help users manage their tasks through natural conversation. You can:
- Create new tasks when users want to add, create, or remember something
- List tasks when users want to see, show, or view their tasks
- Complete tasks when users say done, finished, complete, or mark as done
- Update tasks when users want to change, rename, or modify
- Delete tasks when users want to remove, delete, or cancel

## Understanding User Intent
- "Add a task to buy groceries" -> use add_task with title "Buy groceries"
- "I need to remember to call mom" -> use add_task with title "Call mom"
- "What tasks do I have?" -> use list_tasks
- "Show me pending tasks" -> use list_tasks with status "pending"
- "Mark task 5 as done" -> use complete_task with the task_id
- "Delete the groceries task" -> use delete_task (find the id by listing first)

## Pronoun Resolution
When users say "it", "that", or "the first one", use context from the
conversation. If the reference is ambiguous, ask a brief clarifying question.

## Response Style
- Be conversational and friendly, not robotic
- Confirm actions: "I've added 'Buy groceries' to your tasks!"
- Never show raw JSON or technical errors to users
- If a task isn't found, say "I couldn't find that task", not "Error: not found"
- Keep responses concise but informative`

// BuildMessages assembles the model input for one turn: system prompt,
// bounded history (oldest first) and the new user message. This step is
// pure; it performs no I/O.
func BuildMessages(history []models.Message, userText string) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt))

	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}

	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userText))
	return messages
}

// ToolCallMessage echoes the model's own tool requests back into the
// transcript so the follow-up round has the full calling context.
func ToolCallMessage(uses []ToolUse) llms.MessageContent {
	parts := make([]llms.ContentPart, 0, len(uses))
	for _, use := range uses {
		parts = append(parts, llms.ToolCall{
			ID:   use.ID,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      use.Name,
				Arguments: use.Arguments,
			},
		})
	}
	return llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts}
}

// ToolResponseMessage wraps one executed tool result for the follow-up
// model round.
func ToolResponseMessage(use ToolUse, content string) llms.MessageContent {
	return llms.MessageContent{
		Role: llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{
			llms.ToolCallResponse{
				ToolCallID: use.ID,
				Name:       use.Name,
				Content:    content,
			},
		},
	}
}
