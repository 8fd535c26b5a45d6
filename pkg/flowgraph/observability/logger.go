// Package observability carries the logging, metrics and tracing shared by
// the workflow engine and the assistant capabilities.
//
// Logging goes through slog; metrics and spans go through the global
// OpenTelemetry providers. Every recorder has a no-op twin so callers can
// switch a concern off without branching.
package observability

import "log/slog"

// LogRunStart logs the start of a graph run. A nil logger disables all of
// the Log helpers, so the executor can call them unconditionally.
//
// Example:
//
//	observability.LogRunStart(logger, ctx.RunID(), "conversation-1")
//	// level=INFO msg="graph run starting" run_id=... thread_id=conversation-1
func LogRunStart(logger *slog.Logger, runID, threadID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("run_id", runID),
		slog.String("thread_id", threadID),
	)
}

// LogRunComplete logs successful graph run completion.
func LogRunComplete(logger *slog.Logger, runID, threadID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("run_id", runID),
		slog.String("thread_id", threadID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunError logs graph run failure. lastNode is the node that was
// executing when the run stopped, or "" when the failure came before any
// node ran.
func LogRunError(logger *slog.Logger, runID, threadID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start at debug level.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting", slog.String("node_id", nodeID))
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs a saved checkpoint.
func LogCheckpoint(logger *slog.Logger, nodeID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs a checkpoint failure. These never abort a run
// unless the caller asked for that explicitly.
func LogCheckpointError(logger *slog.Logger, nodeID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("node_id", nodeID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogCapabilityError records a degraded capability call. The turn still
// completes; the error text is what the user sees.
func LogCapabilityError(logger *slog.Logger, capability string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("capability call failed",
		slog.String("capability", capability),
		slog.String("error", err.Error()),
	)
}
