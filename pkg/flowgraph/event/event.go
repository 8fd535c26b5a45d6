package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable notification. Payload must be JSON-serializable
// when the event leaves the process.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New creates an event with a fresh UUID and the current time.
func New(eventType, source, threadID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		ThreadID:  threadID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Marshal encodes the event for transport.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Decode converts a payload that crossed a JSON boundary (and so arrived
// as map[string]any) back into T. Payloads already of type T are returned
// as-is.
func Decode[T any](e Event) (T, error) {
	var out T
	if v, ok := e.Payload.(T); ok {
		return v, nil
	}
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return out, &EventError{EventID: e.ID, Message: "encode payload", Err: err}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &EventError{EventID: e.ID, Message: "decode payload", Err: err}
	}
	return out, nil
}

// Handler processes one event.
type Handler func(ctx context.Context, e Event) error
