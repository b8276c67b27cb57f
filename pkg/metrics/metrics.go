// Package metrics exposes Prometheus counters for agent activity. Handlers
// are registered on the default registry; serve them with promhttp.Handler().
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payagent_chat_requests_total",
			Help: "Chat requests processed, labelled by final status.",
		},
		[]string{"status"},
	)

	ModelCalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payagent_model_calls_total",
			Help: "Completions requested from the model gateway.",
		},
	)

	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payagent_tool_invocations_total",
			Help: "Tool dispatches, labelled by tool name and result status.",
		},
		[]string{"tool", "status"},
	)

	LoopBoundHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payagent_loop_bound_hits_total",
			Help: "Requests that hit the per-message tool-call bound.",
		},
	)
)
