package llm

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/chayanin-t/payagent/agent/contract"
)

type fakeChatModel struct {
	reply       *schema.Message
	err         error
	gotMessages []*schema.Message
	boundTools  []*schema.ToolInfo
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.gotMessages = in
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.boundTools = tools
	return f, nil
}

func TestNewChatGatewayRequiresModel(t *testing.T) {
	t.Parallel()

	_, err := NewChatGateway(nil, "sys")
	if !errors.Is(err, contract.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCompletePrependsSystemPrompt(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{reply: schema.AssistantMessage("hi", nil)}
	g, err := NewChatGateway(fake, "system prompt")
	if err != nil {
		t.Fatalf("NewChatGateway() error = %v", err)
	}

	_, err = g.Complete(context.Background(), []*schema.Message{schema.UserMessage("hello")}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(fake.gotMessages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(fake.gotMessages))
	}
	if fake.gotMessages[0].Role != schema.System || fake.gotMessages[0].Content != "system prompt" {
		t.Fatalf("expected system message first, got %+v", fake.gotMessages[0])
	}
	if fake.boundTools != nil {
		t.Fatal("tools must not be bound when none are offered")
	}
}

func TestCompleteBindsOfferedTools(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{reply: schema.AssistantMessage("ok", nil)}
	g, _ := NewChatGateway(fake, "")

	tools := []*schema.ToolInfo{{Name: "check_balance"}}
	if _, err := g.Complete(context.Background(), nil, tools); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(fake.boundTools) != 1 || fake.boundTools[0].Name != "check_balance" {
		t.Fatalf("unexpected bound tools: %+v", fake.boundTools)
	}
}

func TestCompleteWrapsTransportErrors(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("connection refused")}
	g, _ := NewChatGateway(fake, "")

	_, err := g.Complete(context.Background(), nil, nil)
	if !errors.Is(err, contract.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}
