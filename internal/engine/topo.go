package engine

import (
	"wfengine/internal/node"
	"wfengine/internal/workflow"
)

// topologicalOrder computes a dispatch order over s's connection edges
// using Kahn's algorithm. Ties among simultaneously-ready nodes are broken
// by priority descending, then by each node's original position in
// s.Nodes ascending — so an unconfigured priority (zero value) falls back
// to pure insertion order.
func topologicalOrder(s *workflow.Schema) []node.Type {
	index := make(map[node.Type]int, len(s.Nodes))
	inDegree := make(map[node.Type]int, len(s.Nodes))
	for i, n := range s.Nodes {
		index[n.NodeType] = i
		if _, ok := inDegree[n.NodeType]; !ok {
			inDegree[n.NodeType] = 0
		}
	}
	for _, n := range s.Nodes {
		for _, target := range n.Connections {
			inDegree[target]++
		}
	}

	var ready []node.Type
	for _, n := range s.Nodes {
		if inDegree[n.NodeType] == 0 {
			ready = append(ready, n.NodeType)
		}
	}

	order := make([]node.Type, 0, len(s.Nodes))
	for len(ready) > 0 {
		pick := pickHighestPriority(s, ready, index)
		ready = removeType(ready, pick)
		order = append(order, pick)

		cfg := s.NodeConfig(pick)
		if cfg == nil {
			continue
		}
		for _, target := range cfg.Connections {
			inDegree[target]--
			if inDegree[target] == 0 {
				ready = append(ready, target)
			}
		}
	}

	return order
}

func pickHighestPriority(s *workflow.Schema, candidates []node.Type, index map[node.Type]int) node.Type {
	best := candidates[0]
	bestPriority := priorityOf(s, best)
	bestIndex := index[best]

	for _, c := range candidates[1:] {
		p := priorityOf(s, c)
		i := index[c]
		if p > bestPriority || (p == bestPriority && i < bestIndex) {
			best = c
			bestPriority = p
			bestIndex = i
		}
	}
	return best
}

func priorityOf(s *workflow.Schema, t node.Type) int {
	if cfg := s.NodeConfig(t); cfg != nil {
		return cfg.Priority
	}
	return 0
}

func removeType(list []node.Type, target node.Type) []node.Type {
	out := list[:0]
	for _, t := range list {
		if t != target {
			out = append(out, t)
		}
	}
	return out
}

// reachableFrom runs BFS over the connection graph starting at start,
// returning the inclusive reachable set. Used to narrow the remaining
// dispatch order to a router's chosen branch.
func reachableFrom(s *workflow.Schema, start node.Type) map[node.Type]bool {
	visited := map[node.Type]bool{start: true}
	queue := []node.Type{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		cfg := s.NodeConfig(current)
		if cfg == nil {
			continue
		}
		for _, next := range cfg.Connections {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}
