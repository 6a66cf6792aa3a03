package tools

import (
	"encoding/json"
	"fmt"
)

// Tool error kinds. These are folded into the assistant's reply, never
// surfaced as server failures.
const (
	KindUnknownTool = "unknown_tool"
	KindValidation  = "validation_error"
	KindNotFound    = "not_found"
)

// ToolError is a structured, assistant-visible tool failure. The message is
// written for the end user; the kind is for machines.
type ToolError struct {
	Kind    string `json:"kind"`
	Message string `json:"error"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// validationError creates a ToolError for bad arguments.
func validationError(msg string) *ToolError {
	return &ToolError{Kind: KindValidation, Message: msg}
}

// taskNotFound is the single opaque error for a task that is missing OR
// owned by another user. The two cases must stay observably identical so
// existence of foreign tasks never leaks.
func taskNotFound() *ToolError {
	return &ToolError{Kind: KindNotFound, Message: "I couldn't find that task"}
}

// decodeArgs converts a raw argument map into a typed input struct.
// Unknown keys are ignored; the model occasionally invents extras.
func decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// clamp truncates s to at most max runes.
func clamp(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
