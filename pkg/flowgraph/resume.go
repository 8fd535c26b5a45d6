package flowgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/victoruno/pkg/flowgraph/checkpoint"
)

// resumeConfig holds options for Resume.
type resumeConfig struct {
	replayNode    bool
	validateState func(any) error
	logger        *slog.Logger
}

// ResumeOption configures Resume behavior.
type ResumeOption func(*resumeConfig)

// WithReplayNode re-executes the checkpointed node instead of starting
// at the node after it.
func WithReplayNode() ResumeOption {
	return func(c *resumeConfig) {
		c.replayNode = true
	}
}

// WithStateValidation rejects the loaded state before execution continues.
func WithStateValidation(fn func(any) error) ResumeOption {
	return func(c *resumeConfig) {
		c.validateState = fn
	}
}

// WithResumeLogger enables lifecycle logging for the resumed run.
func WithResumeLogger(logger *slog.Logger) ResumeOption {
	return func(c *resumeConfig) {
		c.logger = logger
	}
}

// Resume continues an interrupted thread from its last checkpoint.
// A thread whose last checkpoint points at END is already complete; its
// tail state is returned without executing anything.
//
// Example:
//
//	// The process died after web_research; continue at generate_response.
//	result, err := compiled.Resume(ctx, store, "conversation-1")
func (cg *CompiledGraph[S]) Resume(ctx Context, store checkpoint.Store, threadID string, opts ...ResumeOption) (S, error) {
	var zero S

	if ctx == nil {
		return zero, ErrNilContext
	}

	cfg := resumeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	cp, err := checkpoint.Latest(store, threadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return zero, fmt.Errorf("%w: %s", ErrNoCheckpoints, threadID)
	}
	if err != nil {
		return zero, fmt.Errorf("load checkpoint: %w", err)
	}

	if cp.Version != checkpoint.Version {
		return zero, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	if cfg.validateState != nil {
		if err := cfg.validateState(state); err != nil {
			return state, fmt.Errorf("state validation failed: %w", err)
		}
	}

	startNode := cp.NextNode
	if cfg.replayNode {
		startNode = cp.NodeID
	}

	if startNode != END && !cg.HasNode(startNode) {
		return zero, fmt.Errorf("%w: %s", ErrInvalidResumeNode, startNode)
	}

	runCfg := defaultRunConfig()
	runCfg.checkpointStore = store
	runCfg.threadID = threadID
	runCfg.sequence = cp.Sequence
	runCfg.logger = cfg.logger

	ec := asExecutionContext(ctx).withThread(threadID)
	result, _, err := cg.runFrom(ec, state, startNode, &runCfg)
	return result, err
}
