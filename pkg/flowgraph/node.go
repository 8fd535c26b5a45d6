package flowgraph

// END is the terminal node identifier.
// Use this as an edge target or route target to stop the run.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state,
// and return the updated state (or the same state) and any error.
//
// The state parameter is passed by value. Nodes should modify and return
// a new state value, not rely on pointer mutation.
//
// Example:
//
//	func increment(ctx flowgraph.Context, s Counter) (Counter, error) {
//	    s.Value++
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc selects a route key for a branch.
// The key is resolved to a node ID through the routes table passed to
// AddBranch, so routers stay free of node naming.
//
// Example:
//
//	func route(ctx flowgraph.Context, s State) string {
//	    if s.Done {
//	        return "finish"
//	    }
//	    return "retry"
//	}
type RouterFunc[S any] func(ctx Context, state S) string

// MergeFunc combines the tail state of a thread (prev) with the input
// state of a new run (next). The returned value is what the entry node sees.
type MergeFunc[S any] func(prev, next S) S

// ReplaceState is the default MergeFunc: the new input wins.
func ReplaceState[S any](_, next S) S {
	return next
}
