// Package checkpoint persists per-thread workflow state so conversations
// can continue across runs and survive process restarts.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists checkpoints keyed by (threadID, nodeID).
// Implementations must be safe for concurrent use. Access is always
// partitioned by thread; no operation reads across threads.
type Store interface {
	// Save stores a checkpoint for a thread at a specific node.
	// Overwrites if a checkpoint for (threadID, nodeID) already exists and
	// assigns it the next sequence number in the thread.
	Save(threadID, nodeID string, data []byte) error

	// Load retrieves a checkpoint.
	// Returns ErrNotFound if checkpoint doesn't exist.
	Load(threadID, nodeID string) ([]byte, error)

	// List returns all checkpoints for a thread, ordered by sequence.
	// Returns empty slice (not error) if the thread has no checkpoints.
	List(threadID string) ([]Info, error)

	// Delete removes a specific checkpoint.
	// Returns nil if checkpoint doesn't exist.
	Delete(threadID, nodeID string) error

	// DeleteThread removes all checkpoints for a thread.
	// Returns nil if the thread has no checkpoints.
	DeleteThread(threadID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	ThreadID  string
	NodeID    string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)

// Latest loads the tail checkpoint of a thread: the one with the highest
// sequence. Returns ErrNotFound when the thread has none.
func Latest(store Store, threadID string) (*Checkpoint, error) {
	infos, err := store.List(threadID)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNotFound
	}

	data, err := store.Load(threadID, infos[len(infos)-1].NodeID)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// LatestCompleted loads the newest checkpoint in a thread whose run reached
// END, skipping anything an interrupted run left behind. Returns ErrNotFound
// when no run on the thread has completed.
func LatestCompleted(store Store, threadID string) (*Checkpoint, error) {
	infos, err := store.List(threadID)
	if err != nil {
		return nil, err
	}

	for i := len(infos) - 1; i >= 0; i-- {
		data, err := store.Load(threadID, infos[i].NodeID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cp, err := Unmarshal(data)
		if err != nil {
			return nil, err
		}
		if cp.Completed() {
			return cp, nil
		}
	}
	return nil, ErrNotFound
}
