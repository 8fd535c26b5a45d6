/*
Package flowgraph provides a typed state-graph engine for agent workflows.

# Overview

A graph is a small finite-state machine: every node has an action and a
single way out, either a fixed successor or a branch whose router picks a
route key from a route table. Compile freezes the builder into an immutable
transition table and Run interprets it one node at a time.

State is a plain Go value threaded through the nodes. Runs can be bound to a
conversation thread, which makes them resumable and lets successive runs on
the same thread build on each other.

# Basic Usage

	type State struct {
	    Input  string
	    Output string
	}

	func process(ctx flowgraph.Context, s State) (State, error) {
	    s.Output = "Processed: " + s.Input
	    return s, nil
	}

	graph := flowgraph.NewGraph[State]().
	    AddNode("process", process).
	    AddEdge("process", flowgraph.END).
	    SetEntry("process")

	compiled, err := graph.Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, State{Input: "hello"})

# Branching

Branches map router keys to nodes, so the router never names nodes itself:

	graph.AddBranch("classify", classifyIntent, map[string]string{
	    "lookup": "search",
	    "chat":   "answer",
	})

A router returning a key outside the table fails the run with a RouterError.
Route tables are known at compile time, so Compile verifies every target and
MaxPathLength reports the longest possible run.

# Threads and Checkpointing

	store := checkpoint.NewMemoryStore()

	result, err := compiled.Run(ctx, input,
	    flowgraph.WithCheckpointing(store),
	    flowgraph.WithThreadID("conversation-1"),
	    flowgraph.WithMerge(appendHistory))

A checkpoint is saved after every node. The checkpoint with the highest
sequence in a thread is its tail; LoadState reads it, WithMerge folds it into
the next run's input, and Resume continues a run that stopped before END.

# Observability

	result, err := compiled.Run(ctx, state,
	    flowgraph.WithObservabilityLogger(logger),
	    flowgraph.WithMetrics(true),
	    flowgraph.WithTracing(true))

Logs carry run_id, thread_id and node_id. Metrics and spans use the global
OpenTelemetry providers.

# Error Handling

Node errors are wrapped in NodeError, panics are recovered into PanicError
with a stack trace. Callers that must never fail (such as a chat facade)
convert these into user-facing text at their own boundary.

# Thread Safety

  - Graph[S] is NOT safe for concurrent use during construction
  - CompiledGraph[S] IS safe for concurrent use (immutable)
  - checkpoint.Store implementations are safe for concurrent use
*/
package flowgraph
