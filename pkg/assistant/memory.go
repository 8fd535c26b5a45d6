package assistant

import (
	"slices"

	"github.com/randalmurphal/victoruno/pkg/flowgraph/registry"
)

// defaultMemoryLimit caps short-term memory per thread, in messages.
const defaultMemoryLimit = 50

// shortTermMemory is a bounded per-thread buffer of recent exchanges, kept
// apart from the durable checkpoint history.
type shortTermMemory struct {
	threads *registry.Registry[string, []Message]
	limit   int
}

func newShortTermMemory(limit int) *shortTermMemory {
	if limit <= 0 {
		limit = defaultMemoryLimit
	}
	return &shortTermMemory{threads: registry.New[string, []Message](), limit: limit}
}

func (m *shortTermMemory) append(threadID string, msgs ...Message) {
	m.threads.Update(threadID, func(cur []Message, _ bool) []Message {
		next := append(slices.Clone(cur), msgs...)
		if over := len(next) - m.limit; over > 0 {
			next = next[over:]
		}
		return next
	})
}

func (m *shortTermMemory) messages(threadID string) []Message {
	msgs, _ := m.threads.Get(threadID)
	return slices.Clone(msgs)
}

func (m *shortTermMemory) clear(threadID string) {
	m.threads.Delete(threadID)
}
