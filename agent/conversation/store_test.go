package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/chayanin-t/payagent/agent/contract"
)

func fixedClock() func() time.Time {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return base }
}

func TestStoreNeverExceedsBound(t *testing.T) {
	t.Parallel()

	s := NewStore(5, WithClock(fixedClock()))
	for i := 0; i < 20; i++ {
		s.AddMessage(contract.RoleUser, fmt.Sprintf("msg-%d", i))
		if s.Len() > 5 {
			t.Fatalf("bound exceeded after append %d: len=%d", i, s.Len())
		}
	}

	turns := s.Turns()
	if len(turns) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(turns))
	}
	if turns[0].Content != "msg-15" || turns[4].Content != "msg-19" {
		t.Fatalf("expected oldest-first eviction, got %q..%q", turns[0].Content, turns[4].Content)
	}
}

func TestStoreEvictsOldestOnToolTurns(t *testing.T) {
	t.Parallel()

	s := NewStore(3, WithClock(fixedClock()))
	s.AddMessage(contract.RoleUser, "hi")
	req := contract.ToolRequest{ID: "call-1", Name: "check_balance", Arguments: "{}"}
	s.AddToolCall("", req)
	s.AddToolResult(req, `{"status":"success"}`)
	s.AddMessage(contract.RoleAssistant, "done")

	turns := s.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].ToolCall == nil || turns[0].ToolCall.Name != "check_balance" {
		t.Fatalf("expected tool-call turn first, got %+v", turns[0])
	}
	if turns[1].Role != contract.RoleTool || turns[1].ToolName != "check_balance" {
		t.Fatalf("expected tool turn second, got %+v", turns[1])
	}
}

func TestStoreClear(t *testing.T) {
	t.Parallel()

	s := NewStore(10, WithClock(fixedClock()))
	s.AddMessage(contract.RoleUser, "hello")
	s.Clear()

	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d turns", s.Len())
	}
	if got := s.Messages(); len(got) != 0 {
		t.Fatalf("expected empty projection, got %d messages", len(got))
	}
}

func TestMessagesProjectionPreservesOrderAndFraming(t *testing.T) {
	t.Parallel()

	s := NewStore(10, WithClock(fixedClock()))
	req := contract.ToolRequest{ID: "call-7", Name: "send_money", Arguments: `{"recipient":"a@b.c","amount":5}`}
	s.AddMessage(contract.RoleUser, "pay alice")
	s.AddToolCall("", req)
	s.AddToolResult(req, `{"status":"success","payout_batch_id":"B1"}`)
	s.AddMessage(contract.RoleAssistant, "Sent!")

	msgs := s.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Role != schema.User || msgs[0].Content != "pay alice" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != schema.Assistant || len(msgs[1].ToolCalls) != 1 {
		t.Fatalf("expected assistant tool-call message, got %+v", msgs[1])
	}
	call := msgs[1].ToolCalls[0]
	if call.ID != "call-7" || call.Function.Name != "send_money" {
		t.Fatalf("unexpected tool call: %+v", call)
	}
	if msgs[2].Role != schema.Tool || msgs[2].ToolCallID != "call-7" {
		t.Fatalf("unexpected tool message: %+v", msgs[2])
	}
	if msgs[3].Role != schema.Assistant || msgs[3].Content != "Sent!" {
		t.Fatalf("unexpected final message: %+v", msgs[3])
	}
}

func TestMessagesProjectionIsStable(t *testing.T) {
	t.Parallel()

	s := NewStore(10, WithClock(fixedClock()))
	s.AddMessage(contract.RoleUser, "hello")
	s.AddMessage(contract.RoleAssistant, "hi there")

	first := s.Messages()
	second := s.Messages()
	if len(first) != len(second) {
		t.Fatalf("projection changed size: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Role != second[i].Role || first[i].Content != second[i].Content {
			t.Fatalf("projection not stable at %d", i)
		}
	}
}
