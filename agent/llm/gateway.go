// Package llm adapts a chat model into the gateway the orchestration loop
// consumes: full history in, either a final answer or one tool request out.
package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/chayanin-t/payagent/agent/contract"
)

// Gateway requests one completion over the projected conversation. When
// tools are offered the reply may carry exactly one tool call; with no tools
// offered the model is forced into a text-only answer. Transport and
// provider faults surface as errors wrapping contract.ErrModelInvoke so the
// loop can distinguish them from tool-level failures.
type Gateway interface {
	Complete(ctx context.Context, msgs []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error)
}

// ChatGateway backs Gateway with an eino tool-calling chat model and a fixed
// system prompt prepended to every request.
type ChatGateway struct {
	base         einomodel.ToolCallingChatModel
	systemPrompt string
}

var _ Gateway = (*ChatGateway)(nil)

func NewChatGateway(base einomodel.ToolCallingChatModel, systemPrompt string) (*ChatGateway, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: chat model is required", contract.ErrValidation)
	}
	return &ChatGateway{base: base, systemPrompt: systemPrompt}, nil
}

func (g *ChatGateway) Complete(ctx context.Context, msgs []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	var m einomodel.BaseChatModel = g.base
	if len(tools) > 0 {
		bound, err := g.base.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools: %v", contract.ErrModelInvoke, err)
		}
		m = bound
	}

	input := make([]*schema.Message, 0, len(msgs)+1)
	if g.systemPrompt != "" {
		input = append(input, schema.SystemMessage(g.systemPrompt))
	}
	input = append(input, msgs...)

	out, err := m.Generate(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrModelInvoke, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: empty completion", contract.ErrSchemaViolation)
	}
	return out, nil
}
