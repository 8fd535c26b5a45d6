package flowgraph

import (
	"log/slog"

	"github.com/randalmurphal/victoruno/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/observability"
)

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxIterations int

	checkpointStore        checkpoint.Store
	threadID               string
	merge                  any // MergeFunc[S], asserted by the executor
	checkpointFailureFatal bool
	sequence               int

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 1000,
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of node executions.
// Default: 1000
//
// This prevents infinite loops from hanging forever. If a graph
// exceeds this limit, Run returns ErrMaxIterations.
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithCheckpointing saves state to store after every node.
// Requires WithThreadID.
func WithCheckpointing(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithThreadID binds the run to a conversation thread. Checkpoints are
// keyed by thread, and the thread's tail state feeds WithMerge.
func WithThreadID(id string) RunOption {
	return func(c *runConfig) {
		c.threadID = id
	}
}

// WithMerge combines the thread's last checkpointed state with the run's
// input before the entry node executes. Without it the input state is used
// as-is (last state wins).
//
// Example:
//
//	compiled.Run(ctx, input,
//	    flowgraph.WithCheckpointing(store),
//	    flowgraph.WithThreadID("user-42"),
//	    flowgraph.WithMerge(func(prev, next State) State {
//	        next.History = append(prev.History, next.History...)
//	        return next
//	    }))
func WithMerge[S any](fn MergeFunc[S]) RunOption {
	return func(c *runConfig) {
		c.merge = fn
	}
}

// WithCheckpointFailureFatal makes checkpoint failures abort the run.
// By default they are logged and execution continues.
func WithCheckpointFailureFatal(fatal bool) RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = fatal
	}
}

// WithObservabilityLogger enables run and node lifecycle logging.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics records OpenTelemetry metrics using the global meter provider.
// Default: disabled
//
// Callers that run many graphs should build one recorder and pass it with
// WithMetricsRecorder instead.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing emits OpenTelemetry spans for the run and every node.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithMetricsRecorder records metrics on rec. A nil rec disables metrics.
//
// Example:
//
//	rec, _ := observability.NewMetricsRecorderFromMeter(provider.Meter("chat"))
//	compiled.Run(ctx, state, flowgraph.WithMetricsRecorder(rec))
func WithMetricsRecorder(rec observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if rec == nil {
			c.metrics = observability.NoopMetrics{}
			return
		}
		c.metrics = rec
	}
}
