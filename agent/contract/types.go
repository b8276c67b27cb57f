package contract

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one recorded step in a conversation. Turns are immutable once
// appended; a tool-role turn always carries ToolName and ToolCallID matching
// the assistant turn that requested it.
type Turn struct {
	Role       Role         `json:"role"`
	Content    string       `json:"content"`
	Timestamp  time.Time    `json:"timestamp"`
	ToolName   string       `json:"tool_name,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
	ToolCall   *ToolRequest `json:"tool_call,omitempty"`
}

// ToolRequest is a tool invocation as emitted by the model. Arguments is the
// raw serialized payload; it is deserialized at dispatch time so a malformed
// payload becomes a tool-level error instead of aborting the turn.
type ToolRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// ToolResult is the structured outcome of executing a ToolRequest: a success
// payload or an error with a human-readable message. Never both.
type ToolResult struct {
	Status  string
	Message string
	Data    map[string]any
}

func SuccessResult(data map[string]any) ToolResult {
	return ToolResult{Status: StatusSuccess, Data: data}
}

func ErrorResult(message string) ToolResult {
	return ToolResult{Status: StatusError, Message: message}
}

func (r ToolResult) IsError() bool {
	return r.Status == StatusError
}

// MarshalJSON flattens Data next to status/message, so a balance result
// serializes as {"status":"success","balance":42,"currency":"USD"}.
func (r ToolResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Data)+2)
	for k, v := range r.Data {
		out[k] = v
	}
	out["status"] = r.Status
	if r.Message != "" {
		out["message"] = r.Message
	}
	return json.Marshal(out)
}

// AgentResponse is what ProcessMessage hands back to the caller. Status is
// always one of success, warning, or error and Response is always safe to
// show to the user.
type AgentResponse struct {
	Status   string   `json:"status"`
	Response string   `json:"response"`
	UserLogs []string `json:"user_logs,omitempty"`
}
