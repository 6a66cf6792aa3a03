package tools_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"taskbot/internal/db"
	"taskbot/internal/models"
	"taskbot/internal/tools"
)

// fakeTaskStore is an in-memory TaskStore that enforces the same ownership
// semantics as internal/db: foreign and missing tasks are both ErrNotFound.
type fakeTaskStore struct {
	mu       sync.Mutex
	tasks    map[string]*models.Task
	nextID   int
	failWith error // when set, every call fails with this error
	calls    int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*models.Task)}
}

func (s *fakeTaskStore) touch() error {
	s.calls++
	return s.failWith
}

func (s *fakeTaskStore) CreateTask(_ context.Context, userID, title string, description *string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return nil, err
	}
	s.nextID++
	id := fmt.Sprintf("task-%d", s.nextID)
	task := &models.Task{
		ID:          surrealmodels.RecordID{Table: "task", ID: id},
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	s.tasks[id] = task
	return task, nil
}

func (s *fakeTaskStore) ListTasks(_ context.Context, userID, status string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return nil, err
	}
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

func (s *fakeTaskStore) lookup(userID, id string) (*models.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, db.ErrNotFound
	}
	return t, nil
}

func (s *fakeTaskStore) GetTask(_ context.Context, userID, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return nil, err
	}
	return s.lookup(userID, id)
}

func (s *fakeTaskStore) UpdateTask(_ context.Context, userID, id string, title, description *string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return nil, err
	}
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
	t.UpdatedAt = time.Now()
	return t, nil
}

func (s *fakeTaskStore) CompleteTask(_ context.Context, userID, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return nil, err
	}
	t, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	t.Completed = true
	t.UpdatedAt = time.Now()
	return t, nil
}

func (s *fakeTaskStore) DeleteTask(_ context.Context, userID, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touch(); err != nil {
		return nil, err
	}
	t, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	delete(s.tasks, id)
	return t, nil
}

func newTestDispatcher(store tools.TaskStore) *tools.Dispatcher {
	deps := &tools.Dependencies{Tasks: store, Logger: slog.Default()}
	return tools.NewDispatcher(tools.NewRegistry(deps), slog.Default())
}

func TestDispatchUnknownTool(t *testing.T) {
	store := newFakeTaskStore()
	d := newTestDispatcher(store)

	call, mutated, err := d.Dispatch(context.Background(), "user-a", "rm_rf", nil)
	require.NoError(t, err, "unknown tool is assistant-visible, not a server failure")
	assert.False(t, mutated)

	toolErr, ok := call.Result.(*tools.ToolError)
	require.True(t, ok)
	assert.Equal(t, tools.KindUnknownTool, toolErr.Kind)
	assert.Zero(t, store.calls, "store must not be touched")
}

func TestDispatchValidationShortCircuits(t *testing.T) {
	store := newFakeTaskStore()
	d := newTestDispatcher(store)

	call, mutated, err := d.Dispatch(context.Background(), "user-a", "add_task",
		map[string]any{"title": "   "})
	require.NoError(t, err)
	assert.False(t, mutated)

	toolErr, ok := call.Result.(*tools.ToolError)
	require.True(t, ok)
	assert.Equal(t, tools.KindValidation, toolErr.Kind)
	assert.Zero(t, store.calls, "validation failure must not touch the store")
}

func TestDispatchAddTask(t *testing.T) {
	store := newFakeTaskStore()
	d := newTestDispatcher(store)

	call, mutated, err := d.Dispatch(context.Background(), "user-a", "add_task",
		map[string]any{"title": "Buy milk", "description": "two liters"})
	require.NoError(t, err)
	assert.True(t, mutated)

	result, ok := call.Result.(tools.TaskMutationResult)
	require.True(t, ok)
	assert.Equal(t, "created", result.Status)
	assert.Equal(t, "Buy milk", result.Title)
	assert.NotEmpty(t, result.TaskID)
}

func TestDispatchForeignTaskIsIndistinguishableFromMissing(t *testing.T) {
	store := newFakeTaskStore()
	d := newTestDispatcher(store)

	// Task 7 belongs to user B
	foreign, err := store.CreateTask(context.Background(), "user-b", "B's secret task", nil)
	require.NoError(t, err)
	foreignID := models.MustRecordIDString(foreign.ID)

	for _, name := range []string{"get_task", "update_task", "complete_task", "delete_task"} {
		t.Run(name, func(t *testing.T) {
			args := map[string]any{"task_id": foreignID}
			if name == "update_task" {
				args["title"] = "hijacked"
			}
			foreignCall, mutated, err := d.Dispatch(context.Background(), "user-a", name, args)
			require.NoError(t, err)
			assert.False(t, mutated, "ownership failure must not count as mutation")

			args = map[string]any{"task_id": "no-such-task"}
			if name == "update_task" {
				args["title"] = "hijacked"
			}
			missingCall, _, err := d.Dispatch(context.Background(), "user-a", name, args)
			require.NoError(t, err)

			// Same opaque error for both: existence never leaks
			assert.Equal(t, foreignCall.Result, missingCall.Result)
		})
	}

	// B's task is untouched
	got, err := store.GetTask(context.Background(), "user-b", foreignID)
	require.NoError(t, err)
	assert.Equal(t, "B's secret task", got.Title)
	assert.False(t, got.Completed)
}

func TestDispatchListTasksIsIdempotent(t *testing.T) {
	store := newFakeTaskStore()
	d := newTestDispatcher(store)

	_, _, err := d.Dispatch(context.Background(), "user-a", "add_task", map[string]any{"title": "One"})
	require.NoError(t, err)
	_, _, err = d.Dispatch(context.Background(), "user-a", "complete_task", map[string]any{"task_id": "task-1"})
	require.NoError(t, err)

	first, mutated, err := d.Dispatch(context.Background(), "user-a", "list_tasks", map[string]any{"status": "all"})
	require.NoError(t, err)
	assert.False(t, mutated, "list_tasks is read-only")

	second, _, err := d.Dispatch(context.Background(), "user-a", "list_tasks", map[string]any{"status": "all"})
	require.NoError(t, err)
	assert.Equal(t, first.Result, second.Result)
}

func TestDispatchStorageFailureAbortsTurn(t *testing.T) {
	store := newFakeTaskStore()
	store.failWith = errors.New("connection reset")
	d := newTestDispatcher(store)

	_, _, err := d.Dispatch(context.Background(), "user-a", "list_tasks", nil)
	require.Error(t, err, "storage failures propagate instead of folding into the reply")
	assert.NotErrorIs(t, err, db.ErrNotFound)
}

func TestDispatchClampsLongInputs(t *testing.T) {
	store := newFakeTaskStore()
	d := newTestDispatcher(store)

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}

	call, _, err := d.Dispatch(context.Background(), "user-a", "add_task",
		map[string]any{"title": string(long)})
	require.NoError(t, err)

	result, ok := call.Result.(tools.TaskMutationResult)
	require.True(t, ok)
	assert.Len(t, result.Title, 200)
}
