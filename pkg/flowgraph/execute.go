package flowgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/victoruno/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// Execution flow:
//  1. If threaded with a merge function, merge the thread's tail state
//  2. Start at the entry point node
//  3. Check for cancellation
//  4. Execute the current node
//  5. Look up the next node in the transition table (fixed or routed)
//  6. Checkpoint, then repeat until END is reached or an error occurs
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState,
//	    flowgraph.WithCheckpointing(store),
//	    flowgraph.WithThreadID("conversation-1"))
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointStore != nil && cfg.threadID == "" {
		return state, ErrThreadIDRequired
	}

	ec := asExecutionContext(ctx).withThread(cfg.threadID)
	runID := ec.runID
	startTime := time.Now()

	observability.LogRunStart(cfg.logger, runID, cfg.threadID)

	if cfg.tracingEnabled {
		spanCtx, runSpan := cfg.spans.StartRunSpan(ec, "victoruno", runID)
		ec = ec.withTracing(spanCtx)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	if cfg.checkpointStore != nil {
		if infos, err := cfg.checkpointStore.List(cfg.threadID); err == nil && len(infos) > 0 {
			cfg.sequence = infos[len(infos)-1].Sequence
		}
	}

	if cfg.checkpointStore != nil && cfg.merge != nil {
		merged, err := cg.mergeThread(state, &cfg)
		if err != nil {
			return state, err
		}
		state = merged
	}

	var nodeCount int
	result, nodeCount, runErr = cg.runFrom(ec, state, cg.entryPoint, &cfg)

	duration := time.Since(startTime)
	cfg.metrics.RecordGraphRun(ec, runErr == nil, duration)

	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, cfg.threadID, runErr, float64(duration.Milliseconds()), lastNodeOf(runErr))
	} else {
		observability.LogRunComplete(cfg.logger, runID, cfg.threadID, float64(duration.Milliseconds()), nodeCount)
	}

	return result, runErr
}

// mergeThread folds the thread's last completed state into the run input.
// State left by an interrupted run is not carried forward.
func (cg *CompiledGraph[S]) mergeThread(input S, cfg *runConfig) (S, error) {
	merge, ok := cfg.merge.(MergeFunc[S])
	if !ok {
		return input, fmt.Errorf("flowgraph: merge function does not match state type %T", input)
	}

	prev, found, err := LoadCompletedState[S](cfg.checkpointStore, cfg.threadID)
	if err != nil {
		if cfg.checkpointFailureFatal {
			return input, &CheckpointError{Op: "load", Err: err}
		}
		observability.LogCheckpointError(cfg.logger, "", "load", err)
		return input, nil
	}
	if !found {
		return input, nil
	}
	return merge(prev, input), nil
}

// runFrom executes the graph starting from a specific node.
// Returns the final state, node count, and any error.
func (cg *CompiledGraph[S]) runFrom(ec *executionContext, state S, startNode string, cfg *runConfig) (S, int, error) {
	current := startNode
	iterations := 0
	prevNode := ""
	nodeCount := 0

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, nodeCount, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		select {
		case <-ec.Done():
			return state, nodeCount, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  ec.Err(),
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeCtx := ec
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			var spanCtx context.Context
			spanCtx, nodeSpan = cfg.spans.StartNodeSpan(ec, current)
			nodeCtx = ec.withTracing(spanCtx)
		}

		nodeStart := time.Now()

		var nodeErr error
		state, nodeErr = cg.executeNode(nodeCtx, current, state)

		nodeDuration := time.Since(nodeStart)
		cfg.metrics.RecordNodeExecution(nodeCtx, current, nodeDuration, nodeErr)

		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, nodeCount, nodeErr
		}
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))
		nodeCount++

		next, err := cg.nextNode(nodeCtx, state, current)
		if err != nil {
			return state, nodeCount, err
		}

		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(ec, cfg, current, prevNode, state, next); err != nil {
				return state, nodeCount, err
			}
		}

		prevNode = current
		current = next
	}

	return state, nodeCount, nil
}

// saveCheckpoint persists the current state after node execution.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx context.Context, cfg *runConfig, nodeID, prevNodeID string, state S, nextNode string) error {
	fail := func(op string, err error) error {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{NodeID: nodeID, Op: op, Err: err}
		}
		observability.LogCheckpointError(cfg.logger, nodeID, op, err)
		return nil
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fail("serialize", fmt.Errorf("%w: %v", ErrSerializeState, err))
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.threadID, nodeID, cfg.sequence, stateBytes, nextNode).
		WithPrevNode(prevNodeID)

	data, err := cp.Marshal()
	if err != nil {
		return fail("marshal", err)
	}

	if err := cfg.checkpointStore.Save(cfg.threadID, nodeID, data); err != nil {
		return fail("save", err)
	}

	observability.LogCheckpoint(cfg.logger, nodeID, len(data))
	cfg.metrics.RecordCheckpoint(ctx, nodeID, int64(len(data)))

	return nil
}

// executeNode executes a single node with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeNode(ec *executionContext, nodeID string, state S) (result S, err error) {
	s, exists := cg.steps[nodeID]
	if !exists {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID),
		}
	}

	nodeCtx := ec.withNodeID(nodeID)

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = s.fn(nodeCtx, state)
	if err != nil {
		return result, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode reads the transition table row for current.
func (cg *CompiledGraph[S]) nextNode(ec *executionContext, state S, current string) (string, error) {
	s := cg.steps[current]
	if s.router == nil {
		return s.next, nil
	}

	key := s.router(ec.withNodeID(current), state)
	if key == "" {
		return "", &RouterError{FromNode: current, Returned: key, Err: ErrInvalidRouterResult}
	}

	next, ok := s.routes[key]
	if !ok {
		return "", &RouterError{FromNode: current, Returned: key, Err: ErrUnknownRoute}
	}
	return next, nil
}

// LoadState returns the tail state of a thread: the state saved by the
// checkpoint with the highest sequence. found is false when the thread has
// no checkpoints.
func LoadState[S any](store checkpoint.Store, threadID string) (state S, found bool, err error) {
	return decodeState[S](checkpoint.Latest(store, threadID))
}

// LoadCompletedState returns the state of the newest checkpoint whose run
// reached END. found is false when no run on the thread has completed.
func LoadCompletedState[S any](store checkpoint.Store, threadID string) (state S, found bool, err error) {
	return decodeState[S](checkpoint.LatestCompleted(store, threadID))
}

func decodeState[S any](cp *checkpoint.Checkpoint, err error) (state S, found bool, _ error) {
	if errors.Is(err, checkpoint.ErrNotFound) {
		return state, false, nil
	}
	if err != nil {
		return state, false, err
	}

	if cp.Version != checkpoint.Version {
		return state, false, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	if err := json.Unmarshal(cp.State, &state); err != nil {
		return state, false, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	return state, true, nil
}
