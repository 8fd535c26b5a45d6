// Package registry provides a generic thread-safe map for values indexed by
// key.
//
// Registry is built for read-heavy use behind a sync.RWMutex. The assistant
// uses it for document extractors keyed by file extension and for
// per-thread short-term memory:
//
//	extractors := registry.New[string, Extractor]()
//	extractors.RegisterAll([]string{"txt", "md"}, extractText)
//
//	fn, ok := extractors.Get("md")
//
// Update applies a read-modify-write under the write lock, so concurrent
// appends to the same key never lose an element:
//
//	memory.Update(threadID, func(msgs []Message, _ bool) []Message {
//	    return append(msgs, msg)
//	})
//
// GetOrCreate calls its factory at most once per key. All iterates over a
// snapshot, so the registry may be modified during iteration.
package registry
