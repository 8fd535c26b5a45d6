package flowgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddBranch and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := flowgraph.NewGraph[MyState]().
//	    AddNode("classify", classify).
//	    AddNode("lookup", lookup).
//	    AddNode("answer", answer).
//	    AddBranch("classify", route, map[string]string{
//	        "lookup": "lookup",
//	        "direct": "answer",
//	    }).
//	    AddEdge("lookup", "answer").
//	    AddEdge("answer", flowgraph.END).
//	    SetEntry("classify")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu         sync.RWMutex
	nodes      map[string]NodeFunc[S]
	order      []string
	edges      map[string][]string
	branches   map[string]branch[S]
	entryPoint string
}

// branch is a conditional transition: a router plus its route table.
type branch[S any] struct {
	router RouterFunc[S]
	routes map[string]string
}

// NewGraph creates a new graph builder for state type S.
// The type parameter S defines the state that flows through the graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:    make(map[string]NodeFunc[S]),
		edges:    make(map[string][]string),
		branches: make(map[string]branch[S]),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("flowgraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == END {
		panic("flowgraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("flowgraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	g.order = append(g.order, id)
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or flowgraph.END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddBranch adds a conditional transition out of a node. After the node
// runs, router picks a key and routes maps that key to the next node ID
// (or END). Exactly one target runs; nodes on other routes are skipped.
// Returns the graph for method chaining.
//
// Panics if router is nil or routes is empty.
func (g *Graph[S]) AddBranch(from string, router RouterFunc[S], routes map[string]string) *Graph[S] {
	if router == nil {
		panic("flowgraph: router function cannot be nil")
	}
	if len(routes) == 0 {
		panic("flowgraph: branch routes cannot be empty")
	}

	table := make(map[string]string, len(routes))
	for key, target := range routes {
		table[key] = target
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.branches[from] = branch[S]{router: router, routes: table}
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
