package llm

import "time"

// CompletionRequest is one chat call: the assistant's system prompt and the
// conversation so far, oldest first.
type CompletionRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`

	// Model overrides the client's default when set.
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// Options go to the backend as-is (Ollama's "options" object).
	Options map[string]any `json:"options,omitempty"`
}

// Conversation returns the messages with the system prompt, if any, as the
// leading system message. Backends that take a flat message list use it.
func (r CompletionRequest) Conversation() []Message {
	out := make([]Message, 0, len(r.Messages)+1)
	if r.SystemPrompt != "" {
		out = append(out, Message{Role: RoleSystem, Content: r.SystemPrompt})
	}
	return append(out, r.Messages...)
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Usage        TokenUsage    `json:"usage"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason"`
	Duration     time.Duration `json:"duration"`
}

// TokenUsage counts prompt and reply tokens as reported by the backend.
// Zero when the backend does not report them.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

func usage(in, out int) TokenUsage {
	return TokenUsage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}
