package checkpoint

import (
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps checkpoints in process memory. Threads vanish when the
// process exits, which is what the assistant wants for short-term memory.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*memoryThread
	closed  bool
}

type memoryThread struct {
	lastSeq int
	entries map[string]memoryEntry // nodeID -> entry
}

type memoryEntry struct {
	data      []byte
	sequence  int
	timestamp time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*memoryThread)}
}

// Save implements Store.
func (m *MemoryStore) Save(threadID, nodeID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	t, ok := m.threads[threadID]
	if !ok {
		t = &memoryThread{entries: make(map[string]memoryEntry)}
		m.threads[threadID] = t
	}

	// Sequences only grow, even after Delete, so the tail is never ambiguous.
	t.lastSeq++
	t.entries[nodeID] = memoryEntry{
		data:      slices.Clone(data),
		sequence:  t.lastSeq,
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(threadID, nodeID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	t, ok := m.threads[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	e, ok := t.entries[nodeID]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(e.data), nil
}

// List implements Store.
func (m *MemoryStore) List(threadID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	t, ok := m.threads[threadID]
	if !ok {
		return []Info{}, nil
	}

	infos := make([]Info, 0, len(t.entries))
	for nodeID, e := range t.entries {
		infos = append(infos, Info{
			ThreadID:  threadID,
			NodeID:    nodeID,
			Sequence:  e.sequence,
			Timestamp: e.timestamp,
			Size:      int64(len(e.data)),
		})
	}
	slices.SortFunc(infos, func(a, b Info) int { return a.Sequence - b.Sequence })
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(threadID, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if t, ok := m.threads[threadID]; ok {
		delete(t.entries, nodeID)
	}
	return nil
}

// DeleteThread implements Store.
func (m *MemoryStore) DeleteThread(threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.threads, threadID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.threads = nil
	return nil
}

// Threads returns the IDs of every thread holding at least one checkpoint.
func (m *MemoryStore) Threads() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.threads))
	for id, t := range m.threads {
		if len(t.entries) > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of checkpoints across all threads.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, t := range m.threads {
		n += len(t.entries)
	}
	return n
}
