// Package tool maps tool names to handlers and the declarative schemas the
// model sees, and dispatches invocations requested by the model.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/chayanin-t/payagent/agent/contract"
)

// Handler executes a tool that needs nothing beyond its arguments.
type Handler func(ctx context.Context, args map[string]any) contract.ToolResult

// ProviderHandler executes a tool that needs the authenticated payment
// provider. Whether a tool receives the provider is declared at registration,
// never inferred at call time.
type ProviderHandler func(ctx context.Context, provider contract.PaymentProvider, args map[string]any) contract.ToolResult

type descriptor struct {
	info            *schema.ToolInfo
	run             Handler
	runWithProvider ProviderHandler
}

// Registry is immutable after initialization: register everything up front,
// then only Infos and Dispatch are called.
type Registry struct {
	order   []string
	entries map[string]descriptor
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]descriptor)}
}

// Register adds a plain tool. Duplicate names are rejected to catch
// configuration bugs early.
func (r *Registry) Register(info *schema.ToolInfo, h Handler) error {
	return r.add(info, descriptor{info: info, run: h})
}

// RegisterWithProvider adds a tool whose handler receives the payment
// provider as dispatch-time context.
func (r *Registry) RegisterWithProvider(info *schema.ToolInfo, h ProviderHandler) error {
	return r.add(info, descriptor{info: info, runWithProvider: h})
}

func (r *Registry) add(info *schema.ToolInfo, d descriptor) error {
	if info == nil || strings.TrimSpace(info.Name) == "" {
		return fmt.Errorf("%w: tool info with a name is required", contract.ErrValidation)
	}
	if d.run == nil && d.runWithProvider == nil {
		return fmt.Errorf("%w: tool %s has no handler", contract.ErrValidation, info.Name)
	}
	if _, exists := r.entries[info.Name]; exists {
		return fmt.Errorf("%w: tool %s already registered", contract.ErrValidation, info.Name)
	}
	r.entries[info.Name] = d
	r.order = append(r.order, info.Name)
	return nil
}

// Infos returns tool schemas in registration order. Order is deterministic
// because it affects model behavior reproducibility.
func (r *Registry) Infos() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].info)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Dispatch looks up and executes a tool by name. The name and raw arguments
// come from untrusted model output, so every failure mode is folded into an
// error ToolResult; Dispatch never panics and never returns a Go error.
func (r *Registry) Dispatch(ctx context.Context, name string, rawArgs string, provider contract.PaymentProvider) contract.ToolResult {
	d, ok := r.entries[name]
	if !ok {
		log.Warn().Str("tool", name).Msg("model requested unknown tool")
		return contract.ErrorResult(fmt.Sprintf("unknown tool %s", name))
	}

	args := map[string]any{}
	if trimmed := strings.TrimSpace(rawArgs); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return contract.ErrorResult(fmt.Sprintf("invalid arguments for tool %s: %v", name, err))
		}
	}

	if d.runWithProvider != nil {
		return d.runWithProvider(ctx, provider, args)
	}
	return d.run(ctx, args)
}
