package flowgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/checkpoint"
)

// Context provides execution context to nodes.
// It extends context.Context with flowgraph-specific services and metadata.
//
// Context is immutable after creation. The executor creates derived contexts
// for each node with updated NodeID and enriched logger.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run, thread and
	// node context. Never returns nil - defaults to slog.Default().
	Logger() *slog.Logger

	// Checkpointer returns the checkpoint store, or nil if not configured.
	Checkpointer() checkpoint.Store

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// ThreadID returns the conversation thread this run belongs to.
	// Empty when the run is not threaded.
	ThreadID() string

	// NodeID returns the current node being executed.
	// Empty string before execution starts.
	NodeID() string
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger       *slog.Logger
	checkpointer checkpoint.Store
	runID        string
	threadID     string
	nodeID       string
}

func (c *executionContext) Logger() *slog.Logger           { return c.logger }
func (c *executionContext) Checkpointer() checkpoint.Store { return c.checkpointer }
func (c *executionContext) RunID() string                  { return c.runID }
func (c *executionContext) ThreadID() string               { return c.threadID }
func (c *executionContext) NodeID() string                 { return c.nodeID }

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with run_id, thread_id and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCheckpointer exposes a checkpoint store to nodes.
func WithCheckpointer(store checkpoint.Store) ContextOption {
	return func(c *executionContext) {
		c.checkpointer = store
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID will be auto-generated.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background(),
//	    flowgraph.WithLogger(myLogger),
//	    flowgraph.WithContextRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withThread returns a copy of the context bound to a conversation thread.
func (c *executionContext) withThread(threadID string) *executionContext {
	cp := *c
	cp.threadID = threadID
	return &cp
}

// withTracing swaps the embedded context.Context (which carries the span)
// while keeping flowgraph services.
func (c *executionContext) withTracing(ctx context.Context) *executionContext {
	cp := *c
	cp.Context = ctx
	return &cp
}

// withNodeID returns a new context with the given node ID set.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	cp := *c
	cp.nodeID = nodeID
	cp.logger = c.logger.With("run_id", c.runID, "thread_id", c.threadID, "node_id", nodeID)
	return &cp
}

// asExecutionContext adapts any Context into the internal implementation
// so the executor can derive per-node contexts.
func asExecutionContext(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	return &executionContext{
		Context:      ctx,
		logger:       ctx.Logger(),
		checkpointer: ctx.Checkpointer(),
		runID:        ctx.RunID(),
		threadID:     ctx.ThreadID(),
		nodeID:       ctx.NodeID(),
	}
}
