// Package engine executes a validated workflow schema against a node
// registry: a single topological walk that dispatches routers, fans
// parallel node sets out concurrently, and applies each node's timeout and
// retry envelope, stopping fast on the first unrecoverable failure.
package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"wfengine/internal/metrics"
	"wfengine/internal/node"
	"wfengine/internal/resilience"
	"wfengine/internal/taskcontext"
	"wfengine/internal/taskerr"
	"wfengine/internal/workflow"
)

// Registry maps a node type to the instance that handles it.
type Registry map[node.Type]node.Node

// Engine runs one validated schema against a registry of node instances.
type Engine struct {
	schema   *workflow.Schema
	registry Registry
}

// New builds an Engine for an already-validated schema. Callers are
// expected to have run workflow.Validate (or Builder.Build) first; New
// does not re-validate.
func New(schema *workflow.Schema, registry Registry) *Engine {
	return &Engine{schema: schema, registry: registry}
}

// Option configures a single Run call.
type Option func(*runOptions)

type runOptions struct {
	correlationID string
}

// WithCorrelationID threads a caller-supplied correlation id through the
// execution instead of letting the task context generate one.
func WithCorrelationID(id string) Option {
	return func(o *runOptions) { o.correlationID = id }
}

// Run executes the workflow against event, returning the terminal task
// context wrapped with execution metadata, or an error if the run could
// not even start (the event could not be stored in the task context).
// A node failure after retries are exhausted, or a node type missing from
// the registry, is reported via Result.Status = StatusFailed with the error
// recorded on the relevant StepRecord, not
// as a returned error — Run only returns an error for conditions outside
// the workflow's own control.
func (e *Engine) Run(ctx context.Context, event any) (*taskcontext.Context, *Result, error) {
	return e.RunWithOptions(ctx, event)
}

// RunWithOptions is Run with Options applied.
func (e *Engine) RunWithOptions(ctx context.Context, event any, opts ...Option) (*taskcontext.Context, *Result, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	var tc *taskcontext.Context
	if ro.correlationID != "" {
		tc = taskcontext.NewWithCorrelationID(ro.correlationID)
	} else {
		tc = taskcontext.New()
	}
	if err := tc.SetEventData(event); err != nil {
		return nil, nil, err
	}

	result := &Result{
		CorrelationID: tc.CorrelationID(),
		StartTime:     time.Now(),
	}

	order := topologicalOrder(e.schema)
	active := make(map[node.Type]bool, len(order))
	for _, t := range order {
		active[t] = true
	}
	handledByFanout := make(map[node.Type]bool)

	status := StatusCompleted

loop:
	for i, t := range order {
		select {
		case <-ctx.Done():
			status = StatusCancelled
			break loop
		default:
		}

		if !active[t] || handledByFanout[t] {
			continue
		}

		cfg := e.schema.NodeConfig(t)
		impl, ok := e.registry[t]
		if !ok {
			err := taskerr.NewNodeNotFoundError(string(t))
			taskerr.Report(err)
			result.Steps = append(result.Steps, StepRecord{
				Index: i, NodeType: string(t), StartedAt: time.Now(),
				Success: false, Error: err.Error(),
			})
			status = StatusFailed
			break loop
		}

		step := StepRecord{Index: i, NodeType: string(t), StartedAt: time.Now()}

		out, retries, err := e.dispatchNode(ctx, cfg, impl, tc)
		step.RetryCount = retries
		step.Duration = time.Since(step.StartedAt)

		if err != nil {
			var terr *taskerr.Error
			if taskerr.As(err, &terr) {
				taskerr.Report(terr)
			}
			step.Success = false
			step.Error = err.Error()
			result.Steps = append(result.Steps, step)
			status = StatusFailed
			break loop
		}

		tc = out
		step.Success = true
		result.Steps = append(result.Steps, step)

		if cfg.IsRouter {
			decision, ok := tc.RouterDecision()
			if !ok {
				err := taskerr.New(taskerr.KindRuntime, "router node did not set router.decision")
				taskerr.Report(err)
				status = StatusFailed
				break loop
			}
			narrowed := reachableFrom(e.schema, node.Type(decision))
			for candidate := range active {
				if candidate == t {
					continue
				}
				if !narrowed[candidate] {
					active[candidate] = false
				}
			}
		}

		if len(cfg.ParallelNodes) > 0 {
			merged, err := e.dispatchParallel(ctx, cfg, tc)
			if err != nil {
				var terr *taskerr.Error
				if taskerr.As(err, &terr) {
					taskerr.Report(terr)
				}
				status = StatusFailed
				result.Steps = append(result.Steps, StepRecord{
					Index: i + 1, NodeType: "parallel-fanout", StartedAt: time.Now(),
					Success: false, Error: err.Error(),
				})
				break loop
			}
			tc = merged
			for _, sibling := range cfg.ParallelNodes {
				handledByFanout[sibling] = true
			}
		}
	}

	result.EndTime = time.Now()
	result.Status = status

	metrics.WorkflowRuns.WithLabelValues(e.schema.WorkflowType, string(status)).Inc()
	metrics.WorkflowDuration.WithLabelValues(e.schema.WorkflowType).Observe(result.EndTime.Sub(result.StartTime).Seconds())

	return tc, result, nil
}

// dispatchNode applies cfg's timeout and retry envelope around a single
// call to impl.Process. Router nodes are never retried: a routing
// decision must come from one authoritative invocation.
func (e *Engine) dispatchNode(ctx context.Context, cfg *node.Config, impl node.Node, tc *taskcontext.Context) (*taskcontext.Context, int, error) {
	maxAttempts := 1
	var delay time.Duration
	if cfg.RetryAttempts > 0 && !cfg.IsRouter {
		maxAttempts = cfg.RetryAttempts
		delay = cfg.RetryDelay
	}

	var result *taskcontext.Context
	attempts := 0

	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: delay,
		Multiplier:   1,
		MaxDelay:     delay,
		RetryIf:      isRetryableNodeError,
	})

	err := retrier.Do(ctx, func(callCtx context.Context) error {
		attempts++
		nodeCtx := callCtx
		cancel := context.CancelFunc(func() {})
		if cfg.Timeout > 0 {
			nodeCtx, cancel = context.WithTimeout(callCtx, cfg.Timeout)
		}
		defer cancel()

		out, procErr := impl.Process(nodeCtx, tc)
		if procErr != nil {
			return taskerr.NewNodeProcessingError(string(cfg.NodeType), procErr)
		}
		result = out
		return nil
	})

	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	metrics.NodeExecutions.WithLabelValues(string(cfg.NodeType), outcome).Inc()
	if attempts > 1 {
		metrics.NodeRetries.WithLabelValues(string(cfg.NodeType)).Add(float64(attempts - 1))
	}

	return result, attempts - 1, err
}

// isRetryableNodeError judges retryability from the cause a node's Process
// call actually returned, not from dispatchNode's own NodeProcessing wrapper
// around it: NodeProcessing is a Business-category kind and is never itself
// retryable, so asking the wrapper would reject every retry regardless of
// RetryAttempts. The underlying cause (e.g. a retryable McpConnection error)
// carries the real signal.
func isRetryableNodeError(err error) bool {
	var wrapper *taskerr.Error
	if !taskerr.As(err, &wrapper) {
		return true
	}
	if wrapper.Cause == nil {
		return wrapper.IsRetryable()
	}
	var cause *taskerr.Error
	if taskerr.As(wrapper.Cause, &cause) {
		return cause.IsRetryable()
	}
	return true
}

// dispatchParallel runs cfg's ParallelNodes concurrently against clones of
// tc, then merges their node outputs back into tc. Each sibling's output is
// read back only from the node key named after its type; anything a sibling
// writes under another key is not merged. Merge keys must be disjoint: the
// schema validator does not reject a type listed twice in ParallelNodes, and
// the second merge of such a key fails with a collision error.
func (e *Engine) dispatchParallel(ctx context.Context, cfg *node.Config, tc *taskcontext.Context) (*taskcontext.Context, error) {
	g, gctx := errgroup.WithContext(ctx)
	branches := make([]*taskcontext.Context, len(cfg.ParallelNodes))

	for i, siblingType := range cfg.ParallelNodes {
		i, siblingType := i, siblingType
		impl, ok := e.registry[siblingType]
		if !ok {
			return nil, taskerr.NewNodeNotFoundError(string(siblingType))
		}
		siblingCfg := e.schema.NodeConfig(siblingType)
		clone := tc.Clone()

		g.Go(func() error {
			out, _, err := e.dispatchNode(gctx, siblingCfg, impl, clone)
			if err != nil {
				return err
			}
			branches[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := tc
	for i, siblingType := range cfg.ParallelNodes {
		if err := merged.MergeFrom(branches[i], []string{string(siblingType)}); err != nil {
			return nil, err
		}
	}
	return merged, nil
}
