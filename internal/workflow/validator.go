package workflow

import (
	"strings"
	"unicode"

	"wfengine/internal/node"
	"wfengine/internal/taskerr"
)

// Validate runs the full validation pipeline against schema, in the fixed
// order the engine relies on: syntactic checks first (cheap, no graph
// walk), then structural checks (existence, arity), then graph-shape
// checks (dangling edges, cycles, reachability, depth) last, since those
// are the most expensive and only meaningful once the cheaper checks pass.
// Validation never performs I/O and never mutates schema.
func Validate(s *Schema) error {
	if err := validateWorkflowType(s); err != nil {
		return err
	}
	if err := validateNodesList(s); err != nil {
		return err
	}
	if err := validateStartNode(s); err != nil {
		return err
	}
	if err := validateNodeConfigurations(s); err != nil {
		return err
	}
	if err := validateConnectionTargets(s); err != nil {
		return err
	}
	if err := validateNoCycles(s); err != nil {
		return err
	}
	if err := validateReachability(s); err != nil {
		return err
	}
	if err := validateDepth(s); err != nil {
		return err
	}
	return nil
}

func validateWorkflowType(s *Schema) error {
	trimmed := strings.TrimSpace(s.WorkflowType)
	if trimmed == "" {
		return taskerr.NewConfigurationError("workflow_type", "non-empty string", "empty or whitespace")
	}
	if len(s.WorkflowType) > MaxWorkflowTypeLength {
		return taskerr.NewConfigurationError("workflow_type", "length <= 255", "too long")
	}
	for _, r := range s.WorkflowType {
		if unicode.IsControl(r) {
			return taskerr.NewConfigurationError("workflow_type", "string without control characters", "contains control characters")
		}
	}
	return nil
}

func validateNodesList(s *Schema) error {
	if len(s.Nodes) == 0 {
		return taskerr.NewConfigurationError("nodes", "non-empty list of nodes", "empty list")
	}
	if len(s.Nodes) > MaxWorkflowNodes {
		return taskerr.NewConfigurationError("nodes", "node count <= 1000", "too many nodes")
	}
	return nil
}

func validateStartNode(s *Schema) error {
	if s.NodeConfig(s.Start) == nil {
		return taskerr.NewConfigurationError("start", "node type present in nodes list", string(s.Start))
	}
	return nil
}

func validateNodeConfigurations(s *Schema) error {
	for _, n := range s.Nodes {
		if err := n.Validate(); err != nil {
			return err
		}
	}
	for _, n := range s.Nodes {
		if len(n.ParallelNodes) > MaxParallelNodes {
			return taskerr.NewConfigurationError("parallel_nodes", "count <= 50", "too many parallel nodes")
		}
	}
	return nil
}

func validateConnectionTargets(s *Schema) error {
	for _, n := range s.Nodes {
		for _, target := range n.Connections {
			if s.NodeConfig(target) == nil {
				return taskerr.NewConfigurationError("connections", "target node present in nodes list", string(target))
			}
		}
		for _, target := range n.ParallelNodes {
			if s.NodeConfig(target) == nil {
				return taskerr.NewConfigurationError("parallel_nodes", "target node present in nodes list", string(target))
			}
		}
	}
	return nil
}

// validateNoCycles runs a DFS over the connection edges (parallel-fan-out
// edges are not part of the sequential graph and are excluded), tracking
// the current recursion stack to detect back edges.
func validateNoCycles(s *Schema) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[node.Type]int, len(s.Nodes))
	var stack []node.Type

	var visit func(t node.Type) error
	visit = func(t node.Type) error {
		switch state[t] {
		case done:
			return nil
		case visiting:
			cycle := append([]node.Type{}, stack...)
			cycle = append(cycle, t)
			return taskerr.NewCycleDetectedError(typesToStrings(cycle))
		}

		state[t] = visiting
		stack = append(stack, t)

		if cfg := s.NodeConfig(t); cfg != nil {
			for _, next := range cfg.Connections {
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[t] = done
		return nil
	}

	for _, n := range s.Nodes {
		if err := visit(n.NodeType); err != nil {
			return err
		}
	}
	return nil
}

// validateReachability walks the connection and parallel-node edges
// breadth-first from Start and fails if any node in the schema is never
// reached.
func validateReachability(s *Schema) error {
	visited := make(map[node.Type]bool, len(s.Nodes))
	queue := []node.Type{s.Start}
	visited[s.Start] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		cfg := s.NodeConfig(current)
		if cfg == nil {
			continue
		}
		for _, next := range append(append([]node.Type{}, cfg.Connections...), cfg.ParallelNodes...) {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	var unreachable []string
	for _, n := range s.Nodes {
		if !visited[n.NodeType] {
			unreachable = append(unreachable, string(n.NodeType))
		}
	}
	if len(unreachable) > 0 {
		return taskerr.NewUnreachableNodesError(unreachable)
	}
	return nil
}

// validateDepth bounds the longest simple path from Start using DFS with a
// path-local visited set so cycles (already rejected by validateNoCycles,
// but defended against here too) don't cause unbounded recursion.
func validateDepth(s *Schema) error {
	depth := maxDepth(s, s.Start, map[node.Type]bool{}, 0)
	if depth > MaxWorkflowDepth {
		return taskerr.NewConfigurationError("workflow_structure", "depth <= 100", "too deep")
	}
	return nil
}

func maxDepth(s *Schema, current node.Type, visited map[node.Type]bool, currentDepth int) int {
	if visited[current] {
		return currentDepth
	}
	visited[current] = true
	defer delete(visited, current)

	cfg := s.NodeConfig(current)
	if cfg == nil {
		return currentDepth
	}

	best := currentDepth
	for _, next := range cfg.Connections {
		if d := maxDepth(s, next, visited, currentDepth+1); d > best {
			best = d
		}
	}
	return best
}

func typesToStrings(types []node.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
