// Package chat runs the turn loop: resolve conversation, load history,
// persist the user message, reason with tools, persist the reply, notify.
// The orchestrator is stateless across turns; every turn is reconstructible
// from the conversation store.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"taskbot/internal/config"
	"taskbot/internal/db"
	"taskbot/internal/llm"
	"taskbot/internal/metrics"
	"taskbot/internal/models"
	"taskbot/internal/notify"
	"taskbot/internal/tools"
)

// maxTitleLen bounds the auto-derived conversation title.
const maxTitleLen = 100

// fallbackReply is persisted when the model requests tools but never
// produces a closing natural-language answer within the round budget.
const fallbackReply = "I've completed the requested actions."

// ConversationStore is the transcript storage the orchestrator depends on.
// internal/db.Client satisfies it.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID string, title *string) (*models.Conversation, error)
	GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error)
	TouchConversation(ctx context.Context, id string, title *string) error
	AppendMessage(ctx context.Context, conversationID, role, content string) (*models.Message, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
}

// Reasoner is the external reasoning boundary. llm.Model satisfies it.
type Reasoner interface {
	Step(ctx context.Context, messages []llms.MessageContent, toolDefs []llms.Tool) (*llm.StepResult, error)
}

// TurnResult is the caller-facing outcome of one turn. ToolCalls are
// transient records; they are never persisted.
type TurnResult struct {
	Reply          string            `json:"response"`
	ConversationID string            `json:"conversation_id"`
	ToolCalls      []models.ToolCall `json:"tool_calls"`
}

// Orchestrator coordinates the store, the reasoner, the tool dispatcher and
// the change notifier for one turn at a time.
type Orchestrator struct {
	store      ConversationStore
	reasoner   Reasoner
	dispatcher *tools.Dispatcher
	notifier   *notify.Notifier
	collector  *metrics.Collector
	logger     *slog.Logger

	historyLimit int
	modelTimeout time.Duration
	toolRounds   int
}

// NewOrchestrator wires a turn orchestrator from its collaborators.
// collector may be nil; a private one is created then.
func NewOrchestrator(
	store ConversationStore,
	reasoner Reasoner,
	dispatcher *tools.Dispatcher,
	notifier *notify.Notifier,
	collector *metrics.Collector,
	cfg config.Config,
	logger *slog.Logger,
) *Orchestrator {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Orchestrator{
		store:        store,
		reasoner:     reasoner,
		dispatcher:   dispatcher,
		notifier:     notifier,
		collector:    collector,
		logger:       logger,
		historyLimit: cfg.HistoryLimit,
		modelTimeout: cfg.ModelTimeout,
		toolRounds:   cfg.ToolRounds,
	}
}

// HandleTurn executes one complete turn for userID. conversationID may be
// empty to start a new conversation. The user message is persisted before
// the model is invoked, so a timeout or crash mid-turn never loses input.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, conversationID, userText string) (*TurnResult, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, ErrEmptyMessage
	}
	start := time.Now()
	defer func() {
		o.collector.RecordTiming(metrics.OpTurn, time.Since(start))
	}()

	// Step 1: resolve or create the conversation
	conv, err := o.resolveConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	convID := models.MustRecordIDString(conv.ID)

	// Step 2: bounded history, oldest first
	history, err := o.store.RecentMessages(ctx, convID, o.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	// Step 3: persist the inbound message before any model call
	if _, err := o.store.AppendMessage(ctx, convID, models.RoleUser, userText); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	title := deriveTitle(userText)
	if err := o.store.TouchConversation(ctx, convID, &title); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	// Steps 4-6: reason with tools under the model deadline
	reply, calls, changes, err := o.reason(ctx, userID, history, userText)
	if err != nil {
		return nil, err
	}

	// Step 7: persist the assistant reply
	if _, err := o.store.AppendMessage(ctx, convID, models.RoleAssistant, reply); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	// Step 8: one publish per successful mutating call
	for _, change := range changes {
		o.notifier.Publish(change)
	}

	o.logger.Info("turn complete",
		"user_id", userID,
		"conversation_id", convID,
		"tool_calls", len(calls),
		"mutations", len(changes))

	return &TurnResult{
		Reply:          reply,
		ConversationID: convID,
		ToolCalls:      calls,
	}, nil
}

func (o *Orchestrator) resolveConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	if conversationID == "" {
		conv, err := o.store.CreateConversation(ctx, userID, nil)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		return conv, nil
	}

	conv, err := o.store.GetConversation(ctx, userID, conversationID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// reason runs the bounded tool loop: the model may answer directly or
// request tool calls, whose results are fed back until it produces a final
// reply or the round budget runs out. The whole exchange shares one
// deadline.
func (o *Orchestrator) reason(ctx context.Context, userID string, history []models.Message, userText string) (string, []models.ToolCall, []notify.TaskChange, error) {
	mctx, cancel := context.WithTimeout(ctx, o.modelTimeout)
	defer cancel()

	messages := llm.BuildMessages(history, userText)
	toolDefs := o.dispatcher.Registry().LLMTools()

	var calls []models.ToolCall
	var changes []notify.TaskChange
	reply := ""

	for round := 0; round < o.toolRounds; round++ {
		stepStart := time.Now()
		step, err := o.reasoner.Step(mctx, messages, toolDefs)
		o.collector.RecordTiming(metrics.OpModelStep, time.Since(stepStart))
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || mctx.Err() != nil {
				return "", nil, nil, ErrTimeout
			}
			return "", nil, nil, fmt.Errorf("model step: %w", err)
		}

		if step.Reply != "" {
			reply = step.Reply
		}
		if len(step.ToolUses) == 0 {
			break
		}

		messages = append(messages, llm.ToolCallMessage(step.ToolUses))
		for _, use := range step.ToolUses {
			dispatchStart := time.Now()
			call, mutated, err := o.dispatchUse(mctx, userID, use)
			o.collector.RecordTiming(metrics.OpToolDispatch, time.Since(dispatchStart))
			o.collector.RecordToolCall(use.Name)
			if err != nil {
				return "", nil, nil, err
			}
			calls = append(calls, call)
			if mutated {
				changes = append(changes, newTaskChange(userID, call))
			}
			messages = append(messages, llm.ToolResponseMessage(use, encodeResult(call.Result)))
		}
	}

	if reply == "" {
		reply = fallbackReply
	}
	return reply, calls, changes, nil
}

// dispatchUse decodes the model's raw JSON arguments and dispatches the
// call. Malformed argument JSON is folded into the call record the same way
// other validation failures are.
func (o *Orchestrator) dispatchUse(ctx context.Context, userID string, use llm.ToolUse) (models.ToolCall, bool, error) {
	args := map[string]any{}
	if use.Arguments != "" {
		if err := json.Unmarshal([]byte(use.Arguments), &args); err != nil {
			o.logger.Warn("malformed tool arguments", "tool", use.Name, "error", err)
			return models.ToolCall{
				Tool:   use.Name,
				Result: &tools.ToolError{Kind: tools.KindValidation, Message: "I couldn't read the arguments for that action."},
			}, false, nil
		}
	}
	return o.dispatcher.Dispatch(ctx, userID, use.Name, args)
}

func newTaskChange(userID string, call models.ToolCall) notify.TaskChange {
	change := notify.TaskChange{UserID: userID, Tool: call.Tool}
	if result, ok := call.Result.(tools.TaskMutationResult); ok {
		change.TaskID = result.TaskID
	}
	return change
}

// deriveTitle turns the first user message into a display title. The store
// only applies it when the conversation has no title yet.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) > maxTitleLen {
		return string(runes[:maxTitleLen-3]) + "..."
	}
	return text
}

func encodeResult(result any) string {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
