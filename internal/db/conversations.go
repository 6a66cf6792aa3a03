package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"taskbot/internal/models"
)

// CreateConversation creates a new conversation owned by userID.
// Title may be nil; it is filled in from the first user message later.
func (c *Client) CreateConversation(ctx context.Context, userID string, title *string) (*models.Conversation, error) {
	defer c.observe(time.Now())

	sql := `
		CREATE type::record("conversation", $id) SET
			user_id = $user_id,
			title = $title,
			created_at = time::now(),
			updated_at = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, sql, map[string]any{
		"id":      newID(),
		"user_id": userID,
		"title":   title,
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create conversation: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetConversation retrieves a conversation by ID, scoped to its owner.
// Returns ErrNotFound if the conversation does not exist or belongs to a
// different user.
func (c *Client) GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		SELECT * FROM type::record("conversation", $id) WHERE user_id = $user_id
	`, map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// TouchConversation bumps the conversation's updated_at timestamp. If title
// is non-nil and the conversation has no title yet, it is set; an existing
// title is never overwritten.
func (c *Client) TouchConversation(ctx context.Context, id string, title *string) error {
	defer c.observe(time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("conversation", $id) SET
			updated_at = time::now(),
			title = title ?? $title
	`, map[string]any{"id": id, "title": title})
	if err != nil {
		return fmt.Errorf("touch conversation: %w", wrapQueryError(err))
	}
	return nil
}

// ListConversations returns all conversations owned by userID, most recently
// updated first.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		SELECT * FROM conversation WHERE user_id = $user_id ORDER BY updated_at DESC
	`, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Conversation{}, nil
	}
	return (*results)[0].Result, nil
}

// DeleteConversation deletes a conversation and all its messages, scoped to
// the owner. Returns ErrNotFound if the conversation does not exist or is
// owned by a different user.
func (c *Client) DeleteConversation(ctx context.Context, userID, id string) error {
	defer c.observe(time.Now())

	// Ownership check first so a foreign ID deletes nothing
	if _, err := c.GetConversation(ctx, userID, id); err != nil {
		return err
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE message WHERE conversation = type::record("conversation", $id);
		DELETE type::record("conversation", $id);
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", wrapQueryError(err))
	}
	return nil
}
