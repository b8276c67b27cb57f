// Package conversation keeps the bounded, append-only turn log for one
// agent instance and projects it into the message sequence the model
// gateway consumes.
package conversation

import (
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/chayanin-t/payagent/agent/contract"
)

const DefaultMaxHistory = 100

// Store holds an ordered sequence of turns, evicting the oldest first when
// the bound is exceeded. It is not safe for concurrent mutation; callers
// processing requests against the same store must serialize access.
type Store struct {
	maxHistory int
	turns      []contract.Turn
	now        func() time.Time
}

type StoreOption func(*Store)

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(maxHistory int, opts ...StoreOption) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	s := &Store{
		maxHistory: maxHistory,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// AddMessage appends a plain user or assistant turn. Content may be empty.
func (s *Store) AddMessage(role contract.Role, content string) {
	s.append(contract.Turn{
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
	})
}

// AddToolCall appends an assistant turn carrying a pending tool request.
func (s *Store) AddToolCall(content string, req contract.ToolRequest) {
	s.append(contract.Turn{
		Role:      contract.RoleAssistant,
		Content:   content,
		Timestamp: s.now().UTC(),
		ToolCall:  &req,
	})
}

// AddToolResult appends a tool-role turn holding the serialized result of
// the given request.
func (s *Store) AddToolResult(req contract.ToolRequest, payload string) {
	s.append(contract.Turn{
		Role:       contract.RoleTool,
		Content:    payload,
		Timestamp:  s.now().UTC(),
		ToolName:   req.Name,
		ToolCallID: req.ID,
	})
}

func (s *Store) append(turn contract.Turn) {
	s.turns = append(s.turns, turn)
	if len(s.turns) > s.maxHistory {
		s.turns = s.turns[len(s.turns)-s.maxHistory:]
	}
}

// Turns returns a copy of the recorded turns in order.
func (s *Store) Turns() []contract.Turn {
	out := make([]contract.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Store) Len() int {
	return len(s.turns)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.turns = nil
}

// Messages projects the turn log into model-gateway messages, preserving
// order exactly. Assistant turns with a pending tool request become
// assistant messages carrying the tool call; tool turns reference the call
// id of the request they answer.
func (s *Store) Messages() []*schema.Message {
	out := make([]*schema.Message, 0, len(s.turns))
	for _, turn := range s.turns {
		switch {
		case turn.Role == contract.RoleUser:
			out = append(out, schema.UserMessage(turn.Content))
		case turn.Role == contract.RoleTool:
			out = append(out, schema.ToolMessage(turn.Content, turn.ToolCallID,
				schema.WithToolName(turn.ToolName)))
		case turn.ToolCall != nil:
			out = append(out, schema.AssistantMessage(turn.Content, []schema.ToolCall{
				{
					ID:   turn.ToolCall.ID,
					Type: "function",
					Function: schema.FunctionCall{
						Name:      turn.ToolCall.Name,
						Arguments: turn.ToolCall.Arguments,
					},
				},
			}))
		default:
			out = append(out, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return out
}
