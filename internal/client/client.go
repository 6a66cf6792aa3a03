// Package client provides an HTTP client for the TaskBot server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client talks to the TaskBot HTTP API on behalf of one user.
type Client struct {
	endpoint   string
	userID     string
	httpClient *http.Client
}

// New creates a client for the given endpoint and user.
// If endpoint is empty, uses TASKBOT_SERVER_URL env var or defaults to localhost:8090.
// Timeout can be configured via TASKBOT_CLIENT_TIMEOUT env var (default 2m; turns wait on the model).
func New(endpoint, userID string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("TASKBOT_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8090"
	}
	endpoint = strings.TrimRight(endpoint, "/")

	timeout := 2 * time.Minute
	if t := os.Getenv("TASKBOT_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint: endpoint,
		userID:   userID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// UserID returns the identity this client acts as.
func (c *Client) UserID() string {
	return c.userID
}

type apiError struct {
	Message string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", c.userID)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("server error: %s", apiErr.Message)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// ToolCallRecord is one tool invocation reported for a turn.
type ToolCallRecord struct {
	Tool   string          `json:"tool"`
	Args   map[string]any  `json:"args,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// TurnResponse is the server's answer to one chat message.
type TurnResponse struct {
	Response       string           `json:"response"`
	ConversationID string           `json:"conversation_id"`
	ToolCalls      []ToolCallRecord `json:"tool_calls"`
}

// Chat sends one message; conversationID may be empty to start a new thread.
func (c *Client) Chat(ctx context.Context, conversationID, message string) (*TurnResponse, error) {
	req := map[string]string{
		"user_id": c.userID,
		"message": message,
	}
	if conversationID != "" {
		req["conversation_id"] = conversationID
	}

	var resp TurnResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Conversation is a conversation summary as returned by the server.
type Conversation struct {
	ID        any       `json:"id"`
	UserID    string    `json:"user_id"`
	Title     *string   `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one transcript entry.
type Message struct {
	ID        any       `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ListConversations returns the user's conversations, most recent first.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// GetConversation returns one conversation plus its recent transcript.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, []Message, error) {
	var resp struct {
		Conversation Conversation `json:"conversation"`
		Messages     []Message    `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, nil, err
	}
	return &resp.Conversation, resp.Messages, nil
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, nil)
}

// Task is a task row as returned by the server.
type Task struct {
	ID          any       `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListTasks returns the user's tasks; status is all, pending or completed.
func (c *Client) ListTasks(ctx context.Context, status string) ([]Task, error) {
	path := "/api/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var resp struct {
		Tasks []Task `json:"tasks"`
		Count int    `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// TaskChange is one change event from the server's websocket feed.
type TaskChange struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Tool       string    `json:"tool"`
	TaskID     string    `json:"task_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WatchEvents streams the user's task changes until ctx is cancelled or the
// connection drops. onChange is invoked per event; returning an error stops
// the watch. Missed events are not replayed; callers reconcile by listing.
func (c *Client) WatchEvents(ctx context.Context, onChange func(TaskChange) error) error {
	wsEndpoint := c.endpoint
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint + "/api/events")
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("user_id", c.userID)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Close the connection when ctx is cancelled so ReadJSON unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var change TaskChange
		if err := conn.ReadJSON(&change); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := onChange(change); err != nil {
			return err
		}
	}
}
