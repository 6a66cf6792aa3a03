package chat

import "errors"

var (
	// ErrConversationNotFound covers both a missing conversation and one
	// owned by a different user; callers cannot tell the two apart.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrTimeout means the reasoning boundary did not answer within the
	// configured deadline. The user's message is already persisted when
	// this is returned; a retry is a new turn.
	ErrTimeout = errors.New("model did not respond in time")

	// ErrEmptyMessage rejects whitespace-only input before any write.
	ErrEmptyMessage = errors.New("message must not be empty")
)
