package assistant

import (
	"maps"
	"slices"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }
func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }

// ConversationState is the unit of work for one graph run. Empty
// CurrentTask and WebContent mean absent.
type ConversationState struct {
	Messages    []Message      `json:"messages"`
	CurrentTask string         `json:"current_task,omitempty"`
	Context     map[string]any `json:"context"`
	Documents   []string       `json:"documents"`
	WebContent  string         `json:"web_content,omitempty"`
}

// NewState seeds a turn with a single user message.
func NewState(userMessage string) ConversationState {
	return ConversationState{
		Messages:  []Message{UserMessage(userMessage)},
		Context:   map[string]any{},
		Documents: []string{},
	}
}

// LastMessage returns the newest message, if any.
func (s ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastReply returns the newest assistant message, if any.
func (s ConversationState) LastReply() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// mergeTurn folds a thread's previous tail state into a new turn: the
// history is prepended and context keys carry over unless the new turn
// overrides them. Documents and web content belong to a single turn.
func mergeTurn(prev, next ConversationState) ConversationState {
	out := next
	out.Messages = append(slices.Clone(prev.Messages), next.Messages...)

	out.Context = make(map[string]any, len(prev.Context)+len(next.Context))
	maps.Copy(out.Context, prev.Context)
	maps.Copy(out.Context, next.Context)

	if out.Documents == nil {
		out.Documents = []string{}
	}
	return out
}
