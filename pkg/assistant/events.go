package assistant

import "time"

// Event types published on the agent's bus.
const (
	EventTurnCompleted     = "turn.completed"
	EventDocumentProcessed = "document.processed"
	EventSearchCompleted   = "search.completed"
	EventConversationReset = "conversation.reset"
)

// eventSource is the Source of every event the agent publishes.
const eventSource = "assistant"

// TurnCompleted is the payload of EventTurnCompleted.
type TurnCompleted struct {
	ThreadID string        `json:"thread_id"`
	Route    string        `json:"route"`
	Message  string        `json:"message"`
	Reply    string        `json:"reply"`
	Duration time.Duration `json:"duration"`
}

// DocumentProcessed is the payload of EventDocumentProcessed.
type DocumentProcessed struct {
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// SearchCompleted is the payload of EventSearchCompleted.
type SearchCompleted struct {
	Query   string `json:"query"`
	Results int    `json:"results"`
}
