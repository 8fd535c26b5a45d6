package flowgraph

// step is one row of the transition table: the node action plus either a
// fixed successor or a router with its route table.
type step[S any] struct {
	fn     NodeFunc[S]
	next   string
	router RouterFunc[S]
	routes map[string]string
}

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. The graph structure cannot be modified after compilation.
//
// Use the introspection methods (NodeIDs, Successors, etc.) to examine
// the graph structure for debugging or visualization.
type CompiledGraph[S any] struct {
	steps      map[string]step[S]
	order      []string
	entryPoint string
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in insertion order.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	ids := make([]string, len(cg.order))
	copy(ids, cg.order)
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.steps[id]
	return exists
}

// IsBranch returns true if the node leaves through a router.
func (cg *CompiledGraph[S]) IsBranch(id string) bool {
	return cg.steps[id].router != nil
}

// Successors returns every node ID reachable in one transition from id,
// including all route targets of a branch (sorted by route key).
// Returns nil for END or unknown nodes.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	s, ok := cg.steps[id]
	if !ok {
		return nil
	}
	if s.router == nil {
		return []string{s.next}
	}
	out := make([]string, 0, len(s.routes))
	for _, key := range sortedKeys(s.routes) {
		out = append(out, s.routes[key])
	}
	return out
}

// Routes returns a copy of the route table for a branch node, or nil.
func (cg *CompiledGraph[S]) Routes(id string) map[string]string {
	s, ok := cg.steps[id]
	if !ok || s.router == nil {
		return nil
	}
	out := make(map[string]string, len(s.routes))
	for k, v := range s.routes {
		out[k] = v
	}
	return out
}

// MaxPathLength returns the largest number of node executions any run can
// take, or -1 if the graph contains a cycle.
func (cg *CompiledGraph[S]) MaxPathLength() int {
	const visiting, done = 1, 2
	state := make(map[string]int, len(cg.steps))
	longest := make(map[string]int, len(cg.steps))

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return false
		case done:
			return true
		}
		state[id] = visiting
		best := 0
		for _, next := range cg.Successors(id) {
			if next == END {
				continue
			}
			if !visit(next) {
				return false
			}
			if longest[next] > best {
				best = longest[next]
			}
		}
		longest[id] = best + 1
		state[id] = done
		return true
	}

	if !visit(cg.entryPoint) {
		return -1
	}
	return longest[cg.entryPoint]
}
