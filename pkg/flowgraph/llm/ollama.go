package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	fgerrors "github.com/randalmurphal/victoruno/pkg/flowgraph/errors"
)

// DefaultOllamaHost is where a local Ollama daemon listens.
const DefaultOllamaHost = "http://localhost:11434"

// Ollama implements Client against the Ollama /api/chat endpoint.
type Ollama struct {
	host       string
	model      string
	httpClient *http.Client
}

// OllamaOption configures Ollama.
type OllamaOption func(*Ollama)

// WithOllamaHTTPClient replaces the HTTP client (timeouts, transport).
func WithOllamaHTTPClient(c *http.Client) OllamaOption {
	return func(o *Ollama) { o.httpClient = c }
}

// NewOllama creates a client for host serving model. An empty host means
// DefaultOllamaHost.
func NewOllama(host, model string, opts ...OllamaOption) *Ollama {
	if host == "" {
		host = DefaultOllamaHost
	}
	o := &Ollama{
		host:       strings.TrimRight(host, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Model returns the default model name.
func (o *Ollama) Model() string { return o.model }

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error"`
}

// Complete implements Client.
func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	body, err := json.Marshal(o.buildRequest(req))
	if err != nil {
		return nil, NewError("complete", fmt.Errorf("encode request: %w", err), false)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, NewError("complete", err, false)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError("complete", ctx.Err(), false)
		}
		// Connection refused and friends: the daemon may be starting.
		return nil, NewError("complete", err, true)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError("complete", fmt.Errorf("read response: %w", err), true)
	}

	var out ollamaChatResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode == http.StatusOK {
			return nil, NewError("complete", fmt.Errorf("decode response: %w", err), false)
		}
	}

	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		httpErr := &fgerrors.HTTPError{StatusCode: resp.StatusCode, Message: msg, Endpoint: "/api/chat"}
		return nil, NewError("complete", httpErr, fgerrors.IsRetryable(httpErr))
	}
	if out.Error != "" {
		return nil, NewError("complete", fmt.Errorf("ollama: %s", out.Error), false)
	}

	reason := out.DoneReason
	if reason == "" {
		reason = "stop"
	}
	return &CompletionResponse{
		Content:      out.Message.Content,
		Model:        out.Model,
		FinishReason: reason,
		Duration:     time.Since(start),
		Usage:        usage(out.PromptEvalCount, out.EvalCount),
	}, nil
}

func (o *Ollama) buildRequest(req CompletionRequest) ollamaChatRequest {
	model := o.model
	if req.Model != "" {
		model = req.Model
	}

	conv := req.Conversation()
	msgs := make([]ollamaMessage, 0, len(conv))
	for _, m := range conv {
		msgs = append(msgs, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	opts := make(map[string]any, len(req.Options)+2)
	for k, v := range req.Options {
		opts[k] = v
	}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) == 0 {
		opts = nil
	}

	return ollamaChatRequest{Model: model, Messages: msgs, Stream: false, Options: opts}
}
