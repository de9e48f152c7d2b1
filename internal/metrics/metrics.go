// Package metrics exposes the prometheus counters and histograms the
// engine, its MCP layer, and its connection pool update as they run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowRuns counts completed Engine.Run calls, labeled by terminal
	// status (completed, failed, cancelled).
	WorkflowRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_workflow_runs_total",
		Help: "Total number of workflow executions by terminal status",
	}, []string{"workflow_type", "status"})

	// WorkflowDuration measures end-to-end Run wall-clock time.
	WorkflowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_workflow_duration_seconds",
		Help:    "Wall-clock duration of a workflow execution",
		Buckets: prometheus.DefBuckets,
	}, []string{"workflow_type"})

	// NodeExecutions counts individual node dispatches, labeled by node type
	// and outcome (success, failed).
	NodeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_node_executions_total",
		Help: "Total number of node dispatches by outcome",
	}, []string{"node_type", "outcome"})

	// NodeRetries counts retry attempts a node required beyond its first.
	NodeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_node_retries_total",
		Help: "Total number of node retry attempts",
	}, []string{"node_type"})

	// MCPToolCalls counts MCP tool invocations by server, tool, and outcome.
	MCPToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_mcp_tool_calls_total",
		Help: "Total number of MCP tool calls",
	}, []string{"server", "tool", "status"})

	// MCPConnectionState tracks the pool's current view of each server's
	// health as a gauge (1 = healthy, 0 = unhealthy).
	MCPConnectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "engine_mcp_connection_healthy",
		Help: "Whether the pool considers a server's connection healthy",
	}, []string{"server"})

	// MCPCircuitState tracks each server's circuit breaker state as a gauge
	// (0 = closed, 1 = open, 2 = half-open — resilience.CircuitState's order).
	MCPCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "engine_mcp_circuit_state",
		Help: "Circuit breaker state per MCP server (0=closed,1=open,2=half-open)",
	}, []string{"server"})

	// RateLimitRejections counts calls rejected by internal/resilience's
	// rate limiter, labeled by key.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_rate_limit_rejections_total",
		Help: "Total number of calls rejected by the rate limiter",
	}, []string{"key"})
)
