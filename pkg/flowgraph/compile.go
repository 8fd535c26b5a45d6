package flowgraph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set and reference an existing node
//  2. Edge and branch sources must reference existing nodes
//  3. Edge and route targets must reference existing nodes or END
//  4. A node has at most one simple edge, and not both an edge and a branch
//  5. Every node has an outgoing transition
//  6. A path to END exists from the entry point
//
// Unreachable nodes (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for _, from := range sortedKeys(g.edges) {
		targets := g.edges[from]
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		if len(targets) > 1 {
			errs = append(errs, fmt.Errorf("%w: node '%s' has %d edges", ErrMultipleEdges, from, len(targets)))
		}
		if _, hasBranch := g.branches[from]; hasBranch {
			errs = append(errs, fmt.Errorf("%w: node '%s'", ErrConflictingEdges, from))
		}
		for _, to := range targets {
			if to != END && !g.hasNode(to) {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	for _, from := range sortedKeys(g.branches) {
		if !g.hasNode(from) {
			errs = append(errs, fmt.Errorf("%w: branch source '%s' does not exist", ErrNodeNotFound, from))
		}
		routes := g.branches[from].routes
		for _, key := range sortedKeys(routes) {
			to := routes[key]
			if to != END && !g.hasNode(to) {
				errs = append(errs, fmt.Errorf("%w: route '%s' from '%s' targets '%s'", ErrNodeNotFound, key, from, to))
			}
		}
	}

	for _, id := range g.order {
		if len(g.edges[id]) == 0 {
			if _, hasBranch := g.branches[id]; !hasBranch {
				errs = append(errs, fmt.Errorf("%w: %s", ErrDeadEnd, id))
			}
		}
	}

	if g.hasNode(g.entryPoint) && !g.hasPathToEnd() {
		errs = append(errs, ErrNoPathToEnd)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g.warnUnreachableNodes()

	return g.buildCompiledGraph(), nil
}

func (g *Graph[S]) hasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// targets returns every node a transition out of id can reach.
func (g *Graph[S]) targets(id string) []string {
	if b, ok := g.branches[id]; ok {
		out := make([]string, 0, len(b.routes))
		for _, key := range sortedKeys(b.routes) {
			out = append(out, b.routes[key])
		}
		return out
	}
	return g.edges[id]
}

// hasPathToEnd checks if END is reachable from the entry point.
// Branch routes are known statically, so reachability is exact.
func (g *Graph[S]) hasPathToEnd() bool {
	seen := map[string]bool{g.entryPoint: true}
	queue := []string{g.entryPoint}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range g.targets(current) {
			if next == END {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph[S]) warnUnreachableNodes() {
	reachable := map[string]bool{g.entryPoint: true}
	queue := []string{g.entryPoint}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.targets(current) {
			if next != END && !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, id := range g.order {
		if !reachable[id] {
			slog.Warn("node is unreachable from entry", "node_id", id)
		}
	}
}

// buildCompiledGraph freezes the builder into a transition table.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	steps := make(map[string]step[S], len(g.nodes))
	for id, fn := range g.nodes {
		s := step[S]{fn: fn}
		if b, ok := g.branches[id]; ok {
			s.router = b.router
			s.routes = make(map[string]string, len(b.routes))
			for key, to := range b.routes {
				s.routes[key] = to
			}
		} else {
			s.next = g.edges[id][0]
		}
		steps[id] = s
	}

	order := make([]string, len(g.order))
	copy(order, g.order)

	return &CompiledGraph[S]{
		steps:      steps,
		order:      order,
		entryPoint: g.entryPoint,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
