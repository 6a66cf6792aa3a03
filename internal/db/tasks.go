package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"taskbot/internal/models"
)

// CreateTask creates a new task owned by userID.
func (c *Client) CreateTask(ctx context.Context, userID, title string, description *string) (*models.Task, error) {
	defer c.observe(time.Now())

	sql := `
		CREATE type::record("task", $id) SET
			user_id = $user_id,
			title = $title,
			description = $description,
			completed = false,
			created_at = time::now(),
			updated_at = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, sql, map[string]any{
		"id":          newID(),
		"user_id":     userID,
		"title":       title,
		"description": description,
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create task: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListTasks returns tasks owned by userID, newest first. Status filters to
// pending or completed tasks; models.StatusAll (or "") returns everything.
func (c *Client) ListTasks(ctx context.Context, userID, status string) ([]models.Task, error) {
	defer c.observe(time.Now())

	completedClause := ""
	switch status {
	case models.StatusPending:
		completedClause = "AND completed = false"
	case models.StatusCompleted:
		completedClause = "AND completed = true"
	}

	sql := fmt.Sprintf(`
		SELECT * FROM task WHERE user_id = $user_id %s ORDER BY created_at DESC
	`, completedClause)

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, sql, map[string]any{
		"user_id": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Task{}, nil
	}
	return (*results)[0].Result, nil
}

// GetTask retrieves a task by ID, scoped to its owner. A task that does not
// exist and a task owned by someone else both return ErrNotFound; callers
// cannot tell the two apart.
func (c *Client) GetTask(ctx context.Context, userID, id string) (*models.Task, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, `
		SELECT * FROM type::record("task", $id) WHERE user_id = $user_id
	`, map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("get task: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// UpdateTask updates a task's title and/or description, scoped to the owner.
// Nil fields are left unchanged. Returns ErrNotFound for missing or foreign
// tasks.
func (c *Client) UpdateTask(ctx context.Context, userID, id string, title, description *string) (*models.Task, error) {
	defer c.observe(time.Now())

	sql := `
		UPDATE type::record("task", $id) SET
			title = $title ?? title,
			description = $description ?? description,
			updated_at = time::now()
		WHERE user_id = $user_id
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, sql, map[string]any{
		"id":          id,
		"user_id":     userID,
		"title":       title,
		"description": description,
	})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// CompleteTask marks a task as completed, scoped to the owner.
// Returns ErrNotFound for missing or foreign tasks.
func (c *Client) CompleteTask(ctx context.Context, userID, id string) (*models.Task, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, `
		UPDATE type::record("task", $id) SET
			completed = true,
			updated_at = time::now()
		WHERE user_id = $user_id
		RETURN AFTER
	`, map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// DeleteTask deletes a task, scoped to the owner. Returns the deleted task
// so callers can reference its title. Returns ErrNotFound for missing or
// foreign tasks; in neither case is any row removed.
func (c *Client) DeleteTask(ctx context.Context, userID, id string) (*models.Task, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Task](ctx, c.db, `
		DELETE type::record("task", $id) WHERE user_id = $user_id RETURN BEFORE
	`, map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("delete task: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}
