package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"wfengine/internal/node"
	"wfengine/internal/taskcontext"
	"wfengine/internal/workflow"
)

type echoNode struct {
	name string
	fn   func(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error)
}

func (e *echoNode) Process(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error) {
	if e.fn != nil {
		return e.fn(ctx, tc)
	}
	if err := tc.UpdateNode(e.name, "ok"); err != nil {
		return nil, err
	}
	return tc, nil
}

func TestRunTwoNodeWorkflow(t *testing.T) {
	schema, err := workflow.NewBuilder("hello_world", "start").
		WithNodes(
			node.NewConfig("start").WithConnections("end"),
			node.NewConfig("end"),
		).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	eng := New(schema, Registry{
		"start": &echoNode{name: "start"},
		"end":   &echoNode{name: "end"},
	})

	tc, result, err := eng.Run(context.Background(), map[string]string{"pr_id": "1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected StatusCompleted, got %s", result.Status)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("expected 2 step records, got %d", len(result.Steps))
	}

	val, ok, _ := taskcontext.GetNodeData[string](tc, "end")
	if !ok || val != "ok" {
		t.Errorf("expected end node output ok, got ok=%v val=%q", ok, val)
	}
}

func TestRunStopsOnNodeFailure(t *testing.T) {
	schema, err := workflow.NewBuilder("fails", "a").
		WithNodes(
			node.NewConfig("a").WithConnections("b"),
			node.NewConfig("b"),
		).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	eng := New(schema, Registry{
		"a": &echoNode{fn: func(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error) {
			return nil, errors.New("boom")
		}},
		"b": &echoNode{name: "b"},
	})

	_, result, err := eng.Run(context.Background(), map[string]string{})
	if err != nil {
		t.Fatalf("Run should not return a top-level error for a node failure: %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("expected StatusFailed, got %s", result.Status)
	}
	if len(result.Steps) != 1 {
		t.Fatalf("expected exactly 1 step record (fail-fast), got %d", len(result.Steps))
	}
}

func TestRunRouterSelectsBranch(t *testing.T) {
	schema, err := workflow.NewBuilder("routed", "router").
		WithNodes(
			node.NewConfig("router").WithRouter(true).WithConnections("path_a", "path_b"),
			node.NewConfig("path_a"),
			node.NewConfig("path_b"),
		).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	eng := New(schema, Registry{
		"router": &echoNode{fn: func(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error) {
			if err := tc.SetMetadata(taskcontext.RouterDecisionKey, "path_b"); err != nil {
				return nil, err
			}
			return tc, nil
		}},
		"path_a": &echoNode{name: "path_a"},
		"path_b": &echoNode{name: "path_b"},
	})

	tc, result, err := eng.Run(context.Background(), map[string]string{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected StatusCompleted, got %s", result.Status)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("expected router + chosen branch only (2 steps), got %d", len(result.Steps))
	}
	if _, ok, _ := taskcontext.GetNodeData[string](tc, "path_a"); ok {
		t.Error("expected path_a to be skipped")
	}
	if _, ok, _ := taskcontext.GetNodeData[string](tc, "path_b"); !ok {
		t.Error("expected path_b to have run")
	}
}

func TestRunParallelFanOutMerges(t *testing.T) {
	schema, err := workflow.NewBuilder("fanout", "init").
		WithNodes(
			node.NewConfig("init").WithConnections("done").WithParallelNodes("worker_a", "worker_b"),
			node.NewConfig("worker_a"),
			node.NewConfig("worker_b"),
			node.NewConfig("done"),
		).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	eng := New(schema, Registry{
		"init":     &echoNode{name: "init"},
		"worker_a": &echoNode{name: "worker_a"},
		"worker_b": &echoNode{name: "worker_b"},
		"done":     &echoNode{name: "done"},
	})

	tc, result, err := eng.Run(context.Background(), map[string]string{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected StatusCompleted, got %s", result.Status)
	}

	if _, ok, _ := taskcontext.GetNodeData[string](tc, "worker_a"); !ok {
		t.Error("expected worker_a output to be merged")
	}
	if _, ok, _ := taskcontext.GetNodeData[string](tc, "worker_b"); !ok {
		t.Error("expected worker_b output to be merged")
	}
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	schema, err := workflow.NewBuilder("retry_wf", "flaky").
		WithNodes(
			node.NewConfig("flaky").WithRetry(3, time.Millisecond),
		).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	attempts := 0
	eng := New(schema, Registry{
		"flaky": &echoNode{fn: func(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("transient")
			}
			return tc, nil
		}},
	})

	_, result, err := eng.Run(context.Background(), map[string]string{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected StatusCompleted after retries, got %s", result.Status)
	}
	if result.Steps[0].RetryCount != 2 {
		t.Errorf("expected 2 recorded retries, got %d", result.Steps[0].RetryCount)
	}
}
