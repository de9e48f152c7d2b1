// Command enginedemo loads configuration, wires an MCP connection pool and
// a sample review workflow, and runs the workflow once against a synthetic
// pull-request event — a smoke test for the engine, not a long-running
// server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"wfengine/internal/config"
	"wfengine/internal/engine"
	"wfengine/internal/llm"
	"wfengine/internal/mcp/pool"
	"wfengine/internal/mcp/transport"
	"wfengine/internal/node"
	"wfengine/internal/nodes"
	"wfengine/internal/resilience"
	"wfengine/internal/taskcontext"
	"wfengine/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		os.Exit(1)
	}

	logger, logCleanup := setupLogger(cfg)
	defer logCleanup()
	slog.SetDefault(logger)

	llmClient := llm.New(cfg.LLM)

	mcpPool := pool.New(pool.Config{
		ConnectionTTL: cfg.Pool.ConnectionTTL,
		RateLimit:     resilience.NewRateLimiterConfigFromRPM(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
	})
	for name, server := range cfg.MCPServers {
		mcpPool.RegisterServer(name, toTransportConfig(server), "wfengine", "1.0.0")
	}
	defer mcpPool.Close()

	schema, err := buildReviewWorkflow()
	if err != nil {
		slog.Error("build workflow schema failed", "error", err)
		os.Exit(1)
	}

	eng := engine.New(schema, buildRegistry(mcpPool, llmClient))

	go serveMetrics(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, result, err := eng.Run(ctx, map[string]interface{}{
		"project_key":     "DEMO",
		"repo_slug":       "sample-repo",
		"pull_request_id": 42,
	})
	if err != nil {
		slog.Error("engine run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("workflow finished", "status", result.Status, "steps", len(result.Steps))
	for _, step := range result.Steps {
		slog.Info("step", "node", step.NodeType, "success", step.Success, "retries", step.RetryCount, "duration", step.Duration)
	}
}

func buildRegistry(mcpPool *pool.Pool, llmClient llm.Client) engine.Registry {
	passThrough := node.Func(func(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error) {
		return tc, nil
	})

	return engine.Registry{
		"extract_diff": &nodes.DiffExtractorNode{
			Pool:       mcpPool,
			ServerName: "bitbucket",
			ToolName:   "bitbucket_get_pull_request_diff",
		},
		"collect_jira_context": &nodes.ContextCollectorNode{
			Pool:       mcpPool,
			ServerName: "jira",
			ToolName:   "jira_get_issue_context",
			NodeKey:    "collect_jira_context",
		},
		"collect_confluence_context": &nodes.ContextCollectorNode{
			Pool:       mcpPool,
			ServerName: "confluence",
			ToolName:   "confluence_get_linked_pages",
			NodeKey:    "collect_confluence_context",
		},
		"review": &nodes.ReviewerNode{
			LLM:                llmClient,
			ApprovalThreshold:  80,
			SystemPromptPrefix: "You are a meticulous code reviewer.",
		},
		"auto_approve":    passThrough,
		"request_changes": passThrough,
	}
}

func buildReviewWorkflow() (*workflow.Schema, error) {
	return workflow.NewBuilder("pr_review", "extract_diff").
		WithNodes(
			node.NewConfig("extract_diff").
				WithConnections("review").
				WithParallelNodes("collect_jira_context", "collect_confluence_context").
				WithRetry(3, time.Second).
				WithTimeout(30*time.Second),
			node.NewConfig("collect_jira_context").
				WithRetry(2, time.Second).
				WithTimeout(15*time.Second),
			node.NewConfig("collect_confluence_context").
				WithRetry(2, time.Second).
				WithTimeout(15*time.Second),
			node.NewConfig("review").
				WithRouter(true).
				WithConnections("auto_approve", "request_changes").
				WithTimeout(time.Minute),
			node.NewConfig("auto_approve"),
			node.NewConfig("request_changes"),
		).
		Build()
}

func toTransportConfig(server config.MCPServerConfig) transport.Config {
	var kind transport.Kind
	switch server.Transport {
	case "stdio":
		kind = transport.KindStdio
	case "websocket":
		kind = transport.KindWebSocket
	case "http":
		kind = transport.KindHTTP
	}
	return transport.Config{
		Kind:              kind,
		Command:           server.Command,
		Args:              server.Args,
		URL:               server.URL,
		Token:             server.Token,
		AuthHeader:        server.AuthHeader,
		HeartbeatInterval: server.HeartbeatInterval,
	}
}

func serveMetrics(cfg *config.Config) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("metrics server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics server stopped", "error", err)
	}
}

func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	var writers []io.Writer
	var closers []io.Closer

	for _, output := range strings.Split(cfg.Log.Output, ",") {
		output = strings.TrimSpace(output)
		if output == "" {
			continue
		}
		var w io.Writer
		switch output {
		case "stderr":
			w = os.Stderr
		case "stdout":
			w = os.Stdout
		default:
			l := &lumberjack.Logger{Filename: output, MaxSize: 100, MaxBackups: 3, MaxAge: 28, Compress: true}
			w = l
			closers = append(closers, l)
		}
		writers = append(writers, w)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	multiWriter := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: cfg.GetLogLevel()}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}
	return slog.New(handler), cleanup
}
