// Package nodes holds concrete node.Node implementations: the example
// components a caller wires into an Engine's Registry to build an actual
// workflow out of the generic execution machinery.
package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"wfengine/internal/mcp"
	"wfengine/internal/mcp/pool"
	"wfengine/internal/taskcontext"
	"wfengine/internal/taskerr"
)

// DiffExtractorNode retrieves a pull request's diff through an MCP tool
// call and stores the raw diff text under its own node key.
type DiffExtractorNode struct {
	Pool       *pool.Pool
	ServerName string
	ToolName   string
}

type diffExtractorInput struct {
	ProjectKey    string `json:"project_key"`
	RepoSlug      string `json:"repo_slug"`
	PullRequestID int    `json:"pull_request_id"`
}

// Process looks up event.project_key / event.repo_slug / event.pull_request_id
// from the task context, calls ToolName on ServerName, and stores the
// resulting diff text under node key "diff".
func (n *DiffExtractorNode) Process(ctx context.Context, tc *taskcontext.Context) (*taskcontext.Context, error) {
	input, err := taskcontext.GetEventData[diffExtractorInput](tc)
	if err != nil {
		return nil, taskerr.NewInvalidInputError("event")
	}

	conn, err := n.Pool.GetConnection(ctx, n.ServerName)
	if err != nil {
		return nil, err
	}

	result, err := conn.CallTool(ctx, n.ToolName, map[string]interface{}{
		"projectKey":    input.ProjectKey,
		"repoSlug":      input.RepoSlug,
		"pullRequestId": input.PullRequestID,
	})
	if err != nil {
		return nil, err
	}

	diff := unwrapJSONDiff(firstNonEmptyText(result))
	if diff == "" {
		return nil, taskerr.NewNodeProcessingError("diff_extractor", fmt.Errorf("empty diff content"))
	}

	if err := tc.UpdateNode("diff", diff); err != nil {
		return nil, err
	}
	return tc, nil
}

func firstNonEmptyText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if strings.TrimSpace(c.Text) != "" {
			return c.Text
		}
	}
	return ""
}

// unwrapJSONDiff handles a tool that wraps its diff text in a JSON envelope
// (e.g. {"diff": "..."}) instead of returning it raw.
func unwrapJSONDiff(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return text
	}
	if val := gjson.Get(trimmed, "diff").String(); val != "" {
		return val
	}
	return text
}
