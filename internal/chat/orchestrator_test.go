package chat_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/tmc/langchaingo/llms"

	"taskbot/internal/chat"
	"taskbot/internal/config"
	"taskbot/internal/db"
	"taskbot/internal/llm"
	"taskbot/internal/models"
	"taskbot/internal/notify"
	"taskbot/internal/tools"
)

// fakeStore is an in-memory ConversationStore preserving append order.
type fakeStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	messages      map[string][]models.Message
	nextID        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.Message),
	}
}

func (s *fakeStore) CreateConversation(_ context.Context, userID string, title *string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("conv-%d", s.nextID)
	conv := &models.Conversation{
		ID:        surrealmodels.RecordID{Table: "conversation", ID: id},
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.conversations[id] = conv
	return conv, nil
}

func (s *fakeStore) GetConversation(_ context.Context, userID, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok || conv.UserID != userID {
		return nil, db.ErrNotFound
	}
	return conv, nil
}

func (s *fakeStore) TouchConversation(_ context.Context, id string, title *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return db.ErrNotFound
	}
	conv.UpdatedAt = time.Now()
	if conv.Title == nil && title != nil {
		conv.Title = title
	}
	return nil
}

func (s *fakeStore) AppendMessage(_ context.Context, conversationID, role, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg := models.Message{
		ID:           surrealmodels.RecordID{Table: "message", ID: fmt.Sprintf("%06d", s.nextID)},
		Conversation: surrealmodels.RecordID{Table: "conversation", ID: conversationID},
		Role:         role,
		Content:      content,
		CreatedAt:    time.Now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return &msg, nil
}

func (s *fakeStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *fakeStore) rolesFor(conversationID string) (users, assistants int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages[conversationID] {
		switch msg.Role {
		case models.RoleUser:
			users++
		case models.RoleAssistant:
			assistants++
		}
	}
	return users, assistants
}

// fakeReasoner replays scripted step results; with block set it hangs until
// the context is cancelled, simulating a stuck model.
type fakeReasoner struct {
	mu       sync.Mutex
	steps    []*llm.StepResult
	block    bool
	received [][]llms.MessageContent
}

func (r *fakeReasoner) Step(ctx context.Context, messages []llms.MessageContent, _ []llms.Tool) (*llm.StepResult, error) {
	r.mu.Lock()
	r.received = append(r.received, messages)
	r.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.steps) == 0 {
		return &llm.StepResult{Reply: "ok"}, nil
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	return step, nil
}

// memTasks is a minimal tools.TaskStore backing the real dispatcher.
type memTasks struct {
	mu     sync.Mutex
	tasks  map[string]*models.Task
	nextID int
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: make(map[string]*models.Task)}
}

func (s *memTasks) CreateTask(_ context.Context, userID, title string, description *string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("task-%d", s.nextID)
	task := &models.Task{
		ID:          surrealmodels.RecordID{Table: "task", ID: id},
		UserID:      userID,
		Title:       title,
		Description: description,
	}
	s.tasks[id] = task
	return task, nil
}

func (s *memTasks) ListTasks(_ context.Context, userID, status string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		if status == models.StatusPending && t.Completed {
			continue
		}
		if status == models.StatusCompleted && !t.Completed {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *memTasks) lookup(userID, id string) (*models.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, db.ErrNotFound
	}
	return t, nil
}

func (s *memTasks) GetTask(_ context.Context, userID, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(userID, id)
}

func (s *memTasks) UpdateTask(_ context.Context, userID, id string, title, description *string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		t.Title = *title
	}
	if description != nil {
		t.Description = description
	}
	return t, nil
}

func (s *memTasks) CompleteTask(_ context.Context, userID, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	t.Completed = true
	return t, nil
}

func (s *memTasks) DeleteTask(_ context.Context, userID, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	delete(s.tasks, id)
	return t, nil
}

type fixture struct {
	store    *fakeStore
	tasks    *memTasks
	reasoner *fakeReasoner
	notifier *notify.Notifier
	orch     *chat.Orchestrator
}

func newFixture(reasoner *fakeReasoner, cfg config.Config) *fixture {
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.ModelTimeout == 0 {
		cfg.ModelTimeout = time.Second
	}
	if cfg.ToolRounds == 0 {
		cfg.ToolRounds = 5
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newFakeStore()
	tasks := newMemTasks()
	deps := &tools.Dependencies{Tasks: tasks, Logger: logger}
	dispatcher := tools.NewDispatcher(tools.NewRegistry(deps), logger)
	notifier := notify.NewNotifier(16)

	return &fixture{
		store:    store,
		tasks:    tasks,
		reasoner: reasoner,
		notifier: notifier,
		orch:     chat.NewOrchestrator(store, reasoner, dispatcher, notifier, nil, cfg, logger),
	}
}

func TestTurnBuyMilkScenario(t *testing.T) {
	reasoner := &fakeReasoner{steps: []*llm.StepResult{
		{ToolUses: []llm.ToolUse{{ID: "call-1", Name: "add_task", Arguments: `{"title":"Buy milk"}`}}},
		{Reply: "Done! I've added 'Buy milk' to your tasks."},
	}}
	f := newFixture(reasoner, config.Config{})

	events, cancel := f.notifier.Subscribe("user-a")
	defer cancel()

	result, err := f.orch.HandleTurn(context.Background(), "user-a", "", "add a task to buy milk")
	require.NoError(t, err)

	assert.Equal(t, "Done! I've added 'Buy milk' to your tasks.", result.Reply)
	assert.NotEmpty(t, result.ConversationID)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "add_task", result.ToolCalls[0].Tool)
	mutation, ok := result.ToolCalls[0].Result.(tools.TaskMutationResult)
	require.True(t, ok)
	assert.Contains(t, mutation.Title, "Buy milk")

	users, assistants := f.store.rolesFor(result.ConversationID)
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, assistants)

	select {
	case change := <-events:
		assert.Equal(t, "user-a", change.UserID)
		assert.Equal(t, "add_task", change.Tool)
		assert.Equal(t, mutation.TaskID, change.TaskID)
	case <-time.After(time.Second):
		t.Fatal("expected one change notification")
	}
	require.Empty(t, events, "exactly one publish per mutating call")
}

func TestTurnTimeoutPersistsUserMessageOnly(t *testing.T) {
	reasoner := &fakeReasoner{block: true}
	f := newFixture(reasoner, config.Config{ModelTimeout: 30 * time.Millisecond})

	_, err := f.orch.HandleTurn(context.Background(), "user-a", "", "hello?")
	require.ErrorIs(t, err, chat.ErrTimeout)

	require.Len(t, f.store.conversations, 1)
	var convID string
	for id := range f.store.conversations {
		convID = id
	}

	users, assistants := f.store.rolesFor(convID)
	assert.Equal(t, 1, users, "the user's message survives the timeout")
	assert.Zero(t, assistants, "no assistant message is written for a timed-out turn")

	// A retry is a new turn and a second persisted message, no dedup
	f.reasoner.block = false
	result, err := f.orch.HandleTurn(context.Background(), "user-a", convID, "hello?")
	require.NoError(t, err)

	users, _ = f.store.rolesFor(result.ConversationID)
	assert.Equal(t, 2, users)
}

func TestTurnLoadsBoundedHistory(t *testing.T) {
	reasoner := &fakeReasoner{steps: []*llm.StepResult{{Reply: "hi"}}}
	f := newFixture(reasoner, config.Config{HistoryLimit: 20})

	conv, err := f.store.CreateConversation(context.Background(), "user-a", nil)
	require.NoError(t, err)
	convID := models.MustRecordIDString(conv.ID)

	for i := 1; i <= 25; i++ {
		_, err := f.store.AppendMessage(context.Background(), convID, models.RoleUser, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	_, err = f.orch.HandleTurn(context.Background(), "user-a", convID, "what did I say?")
	require.NoError(t, err)

	require.Len(t, reasoner.received, 1)
	prompt := reasoner.received[0]

	// system + 20 history + new user message
	require.Len(t, prompt, 22)
	first, ok := prompt[1].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Equal(t, "message 6", first.Text, "window starts at the 6th of 25 messages, oldest first")
	last, ok := prompt[20].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Equal(t, "message 25", last.Text)
}

func TestTurnForeignConversationRejected(t *testing.T) {
	reasoner := &fakeReasoner{}
	f := newFixture(reasoner, config.Config{})

	conv, err := f.store.CreateConversation(context.Background(), "user-b", nil)
	require.NoError(t, err)
	convID := models.MustRecordIDString(conv.ID)

	_, err = f.orch.HandleTurn(context.Background(), "user-a", convID, "hi")
	require.ErrorIs(t, err, chat.ErrConversationNotFound)

	users, assistants := f.store.rolesFor(convID)
	assert.Zero(t, users, "nothing is written into a foreign conversation")
	assert.Zero(t, assistants)
	assert.Empty(t, reasoner.received, "the model is never invoked")
}

func TestTurnForeignTaskDeleteLeavesRowAndSkipsNotify(t *testing.T) {
	reasoner := &fakeReasoner{steps: []*llm.StepResult{
		{ToolUses: []llm.ToolUse{{ID: "call-1", Name: "delete_task", Arguments: `{"task_id":"task-1"}`}}},
		{Reply: "I couldn't find that task."},
	}}
	f := newFixture(reasoner, config.Config{})

	// task-1 belongs to user B
	_, err := f.tasks.CreateTask(context.Background(), "user-b", "B's task", nil)
	require.NoError(t, err)

	events, cancel := f.notifier.Subscribe("user-a")
	defer cancel()

	result, err := f.orch.HandleTurn(context.Background(), "user-a", "", "delete task 1")
	require.NoError(t, err)

	require.Len(t, result.ToolCalls, 1)
	toolErr, ok := result.ToolCalls[0].Result.(*tools.ToolError)
	require.True(t, ok)
	assert.Equal(t, tools.KindNotFound, toolErr.Kind)

	got, err := f.tasks.GetTask(context.Background(), "user-b", "task-1")
	require.NoError(t, err)
	assert.Equal(t, "B's task", got.Title)

	assert.Empty(t, events, "a failed mutation publishes nothing")
}

func TestTurnReadOnlyToolsDoNotNotify(t *testing.T) {
	reasoner := &fakeReasoner{steps: []*llm.StepResult{
		{ToolUses: []llm.ToolUse{{ID: "call-1", Name: "list_tasks", Arguments: `{"status":"all"}`}}},
		{Reply: "You have no tasks."},
	}}
	f := newFixture(reasoner, config.Config{})

	events, cancel := f.notifier.Subscribe("user-a")
	defer cancel()

	result, err := f.orch.HandleTurn(context.Background(), "user-a", "", "what do I have to do?")
	require.NoError(t, err)

	require.Len(t, result.ToolCalls, 1)
	assert.Empty(t, events)
}

func TestTurnSetsTitleFromFirstMessageOnly(t *testing.T) {
	reasoner := &fakeReasoner{steps: []*llm.StepResult{{Reply: "hi"}, {Reply: "hi again"}}}
	f := newFixture(reasoner, config.Config{})

	result, err := f.orch.HandleTurn(context.Background(), "user-a", "", "plan my week")
	require.NoError(t, err)

	conv, err := f.store.GetConversation(context.Background(), "user-a", result.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, conv.Title)
	assert.Equal(t, "plan my week", *conv.Title)

	_, err = f.orch.HandleTurn(context.Background(), "user-a", result.ConversationID, "actually plan my month")
	require.NoError(t, err)

	conv, err = f.store.GetConversation(context.Background(), "user-a", result.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "plan my week", *conv.Title, "later turns never overwrite the title")
}

func TestTurnRejectsEmptyMessage(t *testing.T) {
	f := newFixture(&fakeReasoner{}, config.Config{})

	_, err := f.orch.HandleTurn(context.Background(), "user-a", "", "   ")
	require.ErrorIs(t, err, chat.ErrEmptyMessage)
	assert.Empty(t, f.store.conversations)
}

func TestTurnFallbackReplyAfterRoundBudget(t *testing.T) {
	// The model keeps requesting tools and never produces a closing reply
	use := llm.ToolUse{ID: "call-1", Name: "list_tasks", Arguments: `{}`}
	reasoner := &fakeReasoner{steps: []*llm.StepResult{
		{ToolUses: []llm.ToolUse{use}},
		{ToolUses: []llm.ToolUse{use}},
		{ToolUses: []llm.ToolUse{use}},
	}}
	f := newFixture(reasoner, config.Config{ToolRounds: 3})

	result, err := f.orch.HandleTurn(context.Background(), "user-a", "", "loop forever")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Reply)
	assert.Len(t, result.ToolCalls, 3)
}
