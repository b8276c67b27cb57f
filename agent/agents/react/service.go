// Package react drives the tool-calling loop: request a completion, execute
// the requested tool, feed the result back, repeat until the model produces
// a final answer or the per-message bound is hit.
package react

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chayanin-t/payagent/agent/audit"
	"github.com/chayanin-t/payagent/agent/contract"
	"github.com/chayanin-t/payagent/agent/conversation"
	"github.com/chayanin-t/payagent/agent/llm"
	"github.com/chayanin-t/payagent/agent/tool"
	"github.com/chayanin-t/payagent/pkg/metrics"
)

type Config struct {
	MaxTurns   int `envconfig:"MAX_TURNS" split_words:"true" default:"3"`
	MaxHistory int `envconfig:"MAX_HISTORY" split_words:"true" default:"100"`
}

const (
	exhaustedFallbackText = "I've reached the maximum number of PayPal API calls I can make in sandbox mode for this request."
	errorResponseText     = "I encountered an error while processing your request in PayPal sandbox mode."
)

// Agent owns one conversation and processes one message at a time. Callers
// running it behind a concurrent surface must serialize access.
type Agent struct {
	gateway  llm.Gateway
	registry *tool.Registry
	provider contract.PaymentProvider
	recorder audit.Recorder
	store    *conversation.Store
	maxTurns int
	now      func() time.Time
}

func New(
	gateway llm.Gateway,
	registry *tool.Registry,
	provider contract.PaymentProvider,
	recorder audit.Recorder,
	cfg Config,
) (*Agent, error) {
	if gateway == nil {
		return nil, errors.New("model gateway is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if provider == nil {
		return nil, errors.New("payment provider is required")
	}
	if recorder == nil {
		recorder = audit.Noop{}
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 3
	}

	return &Agent{
		gateway:  gateway,
		registry: registry,
		provider: provider,
		recorder: recorder,
		store:    conversation.NewStore(cfg.MaxHistory),
		maxTurns: maxTurns,
		now:      time.Now,
	}, nil
}

// Reset clears the conversation history.
func (a *Agent) Reset() {
	a.store.Clear()
	log.Info().Msg("cleared conversation history")
}

// ProcessMessage runs one user message through the loop. The returned status
// is success, warning (tool-call bound hit), or error (gateway fault); the
// response text is always safe to show to the user.
func (a *Agent) ProcessMessage(ctx context.Context, userText string) contract.AgentResponse {
	requestID := uuid.NewString()[:8]
	logger := log.With().Str("request_id", requestID).Logger()
	logger.Info().Msg("processing user request")
	logger.Debug().Str("message", userText).Msg("user message details")

	userLogs := []string{"[SANDBOX] Processing request with PayPal REST API (sandbox mode only)"}

	a.store.AddMessage(contract.RoleUser, userText)
	tools := a.registry.Infos()
	turns := 0

	for {
		if err := ctx.Err(); err != nil {
			return a.fail(requestID, err, append(userLogs, "[SANDBOX] Request cancelled"))
		}

		metrics.ModelCalls.Inc()
		reply, err := a.gateway.Complete(ctx, a.store.Messages(), tools)
		if err != nil {
			return a.fail(requestID, err, append(userLogs, "[SANDBOX] Error processing request"))
		}

		req, hasToolCall := toolRequestFrom(reply)
		if !hasToolCall {
			content := strings.TrimSpace(reply.Content)
			if content == "" {
				return a.fail(requestID,
					fmt.Errorf("%w: completion has neither content nor tool call", contract.ErrSchemaViolation),
					append(userLogs, "[SANDBOX] Error processing request"))
			}
			a.store.AddMessage(contract.RoleAssistant, content)
			userLogs = append(userLogs, "[SANDBOX] Request processed successfully")
			logger.Info().Str("response", truncate(content, 50)).Msg("generated response")
			metrics.ChatRequests.WithLabelValues(contract.StatusSuccess).Inc()
			return contract.AgentResponse{
				Status:   contract.StatusSuccess,
				Response: content,
				UserLogs: userLogs,
			}
		}

		if turns >= a.maxTurns {
			return a.forceFinalAnswer(ctx, requestID, logger, append(userLogs, "[SANDBOX] Maximum PayPal API calls reached"))
		}
		turns++

		logger.Info().Str("tool", req.Name).Int("turn", turns).Msg("executing tool")
		logger.Debug().Str("arguments", req.Arguments).Msg("tool arguments")
		userLogs = append(userLogs, "[SANDBOX] Executing action: "+req.Name)

		a.store.AddToolCall(reply.Content, req)

		started := a.now()
		result := a.registry.Dispatch(ctx, req.Name, req.Arguments, a.provider)
		metrics.ToolInvocations.WithLabelValues(req.Name, result.Status).Inc()
		_ = a.recorder.Record(ctx, audit.Entry{
			RequestID:  requestID,
			Tool:       req.Name,
			Arguments:  req.Arguments,
			Status:     result.Status,
			Message:    result.Message,
			DurationMS: a.now().Sub(started).Milliseconds(),
		})

		a.store.AddToolResult(req, marshalResult(result))
		if result.IsError() {
			logger.Warn().Str("tool", req.Name).Str("error", result.Message).Msg("tool returned error")
			userLogs = append(userLogs, "[SANDBOX] Error executing action: "+req.Name)
		} else {
			userLogs = append(userLogs, "[SANDBOX] Completed action: "+req.Name)
		}
	}
}

// forceFinalAnswer asks for one completion with no tools offered so the loop
// always terminates with text, then surfaces the bound hit as a warning. A
// gateway fault here still fails the whole request; the fallback text covers
// only a model that answers with no text.
func (a *Agent) forceFinalAnswer(ctx context.Context, requestID string, logger zerolog.Logger, userLogs []string) contract.AgentResponse {
	metrics.LoopBoundHits.Inc()
	logger.Warn().Int("max_turns", a.maxTurns).Msg("tool-call bound reached without final response")

	metrics.ModelCalls.Inc()
	reply, err := a.gateway.Complete(ctx, a.store.Messages(), nil)
	if err != nil {
		return a.fail(requestID, err, append(userLogs, "[SANDBOX] Error processing request"))
	}

	text := exhaustedFallbackText
	if content := strings.TrimSpace(reply.Content); content != "" {
		text = content
	}

	a.store.AddMessage(contract.RoleAssistant, text)
	metrics.ChatRequests.WithLabelValues(contract.StatusWarning).Inc()
	return contract.AgentResponse{
		Status:   contract.StatusWarning,
		Response: text,
		UserLogs: userLogs,
	}
}

// fail aborts the current request. The triggering user turn stays recorded;
// only a user-safe message is returned.
func (a *Agent) fail(requestID string, err error, userLogs []string) contract.AgentResponse {
	log.Error().Str("request_id", requestID).Err(err).Msg("request failed")
	metrics.ChatRequests.WithLabelValues(contract.StatusError).Inc()
	return contract.AgentResponse{
		Status:   contract.StatusError,
		Response: errorResponseText,
		UserLogs: userLogs,
	}
}

// toolRequestFrom extracts the first tool call from a completion. Additional
// calls in the same reply are ignored: the loop executes one tool per turn.
func toolRequestFrom(reply *schema.Message) (contract.ToolRequest, bool) {
	if reply == nil || len(reply.ToolCalls) == 0 {
		return contract.ToolRequest{}, false
	}
	call := reply.ToolCalls[0]
	name := strings.TrimSpace(call.Function.Name)
	if name == "" {
		return contract.ToolRequest{}, false
	}
	id := call.ID
	if id == "" {
		id = uuid.NewString()
	}
	return contract.ToolRequest{
		ID:        id,
		Name:      name,
		Arguments: call.Function.Arguments,
	}, true
}

func marshalResult(result contract.ToolResult) string {
	payload, err := json.Marshal(result)
	if err != nil {
		return `{"status":"error","message":"unserializable tool result"}`
	}
	return string(payload)
}

// truncate shortens a log preview to n runes without splitting a multi-byte
// character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
