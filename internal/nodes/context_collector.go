package nodes

import (
	"context"

	"wfengine/internal/mcp/pool"
	"wfengine/internal/taskcontext"
)

// ContextCollectorNode gathers supplementary context for a review — open
// comments, linked ticket summaries, whatever ToolName returns — through a
// second MCP server and stores it alongside the diff. Designed to run as
// one of an init node's ParallelNodes siblings, so its output key must be
// disjoint from any other sibling's. In that role NodeKey must equal the
// node's own type in the workflow: the engine merges a parallel sibling's
// output back only from the node key named after its type.
type ContextCollectorNode struct {
	Pool       *pool.Pool
	ServerName string
	ToolName   string
	NodeKey    string
	Arguments  map[string]interface{}
}

func (n *ContextCollectorNode) Process(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error) {
	conn, err := n.Pool.GetConnection(ctx, n.ServerName)
	if err != nil {
		return nil, err
	}

	result, err := conn.CallTool(ctx, n.ToolName, n.Arguments)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		if c.Text != "" {
			texts = append(texts, c.Text)
		}
	}

	if err := tc.UpdateNode(n.NodeKey, texts); err != nil {
		return nil, err
	}
	return tc, nil
}
