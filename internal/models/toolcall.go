package models

// ToolCall records one tool invocation made during a turn. Tool calls are
// transient: they exist only in the turn response returned to the caller and
// are never written to the conversation store. The transcript records what
// was said, not how it was computed.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Result any            `json:"result"`
}
