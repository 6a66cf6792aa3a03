package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"taskbot/internal/models"
)

// AppendMessage appends a message to a conversation's transcript. The
// transcript is append-only; messages are never updated or deleted
// individually.
func (c *Client) AppendMessage(ctx context.Context, conversationID, role, content string) (*models.Message, error) {
	defer c.observe(time.Now())

	sql := `
		CREATE type::record("message", $id) SET
			conversation = type::record("conversation", $conversation),
			role = $role,
			content = $content,
			created_at = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Message](ctx, c.db, sql, map[string]any{
		"id":           newID(),
		"conversation": conversationID,
		"role":         role,
		"content":      content,
	})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("append message: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// RecentMessages returns the most recent `limit` messages of a conversation
// in chronological order (oldest first). Ordering is by record ID: message
// IDs are monotonic ULIDs, so ID order is write order even when timestamps
// collide within a millisecond.
func (c *Client) RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message
		WHERE conversation = type::record("conversation", $conversation)
		ORDER BY id DESC
		LIMIT $limit
	`, map[string]any{"conversation": conversationID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Message{}, nil
	}

	// Query returns newest-first; reverse to chronological order
	msgs := (*results)[0].Result
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
