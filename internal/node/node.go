// Package node defines the Node capability contract every workflow step
// implements, and the per-node configuration (timeout, retry, routing,
// concurrency) the engine consults when it dispatches one.
package node

import (
	"context"

	"wfengine/internal/taskcontext"
)

// Type is a node's stable type identifier. Go has no runtime TypeId the way
// the system this was modeled on does, so node identity is a plain string:
// the workflow's registry maps a Type to the Node instance that handles it,
// keeping type identity and instance lifecycle separate on purpose.
type Type string

// Node is the capability every workflow step implements: take a task
// context, return the context it produced (or an error). The asynchronous
// case the engine supports — a node suspending mid-execution under the
// worker-pool scheduling model — uses this same contract; the node simply
// returns once its goroutine-bound work completes or ctx is cancelled.
type Node interface {
	Process(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error)
}

// Func adapts a plain function to Node.
type Func func(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error)

func (f Func) Process(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error) {
	return f(ctx, tc)
}
