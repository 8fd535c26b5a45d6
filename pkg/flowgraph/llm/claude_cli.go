package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ClaudeCLI implements Client by shelling out to the claude binary in
// print mode. It is the fallback model when no Ollama daemon is around.
type ClaudeCLI struct {
	path    string
	model   string
	workdir string
	timeout time.Duration
}

// ClaudeOption configures ClaudeCLI.
type ClaudeOption func(*ClaudeCLI)

// NewClaudeCLI creates a client. Assumes "claude" is on PATH unless
// overridden with WithClaudePath.
func NewClaudeCLI(opts ...ClaudeOption) *ClaudeCLI {
	c := &ClaudeCLI{
		path:    "claude",
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithClaudePath(path string) ClaudeOption {
	return func(c *ClaudeCLI) { c.path = path }
}

func WithModel(model string) ClaudeOption {
	return func(c *ClaudeCLI) { c.model = model }
}

func WithWorkdir(dir string) ClaudeOption {
	return func(c *ClaudeCLI) { c.workdir = dir }
}

// WithTimeout bounds each invocation. Zero disables the bound.
func WithTimeout(d time.Duration) ClaudeOption {
	return func(c *ClaudeCLI) { c.timeout = d }
}

// Complete implements Client.
func (c *ClaudeCLI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, c.buildArgs(req)...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, NewError("complete", ctx.Err(), false)
		}
		errMsg := stderr.String()
		return nil, NewError("complete", fmt.Errorf("%w: %s", err, errMsg), isRetryableError(errMsg))
	}

	return &CompletionResponse{
		Content:      strings.TrimSpace(stdout.String()),
		FinishReason: "stop",
		Model:        c.model,
		Duration:     time.Since(start),
	}, nil
}

// buildArgs flattens the conversation into a single print-mode prompt.
func (c *ClaudeCLI) buildArgs(req CompletionRequest) []string {
	args := []string{"--print"}

	system := req.SystemPrompt
	var prompt strings.Builder
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			// The assistant puts its preamble in the message list.
			if system == "" {
				system = msg.Content
			}
		case RoleUser:
			prompt.WriteString("User: ")
			prompt.WriteString(msg.Content)
			prompt.WriteString("\n\n")
		case RoleAssistant:
			prompt.WriteString("Assistant: ")
			prompt.WriteString(msg.Content)
			prompt.WriteString("\n\n")
		}
	}

	if system != "" {
		args = append(args, "--system-prompt", system)
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	if p := strings.TrimSpace(prompt.String()); p != "" {
		args = append(args, "-p", p)
	}
	return args
}

// isRetryableError reports whether stderr text looks transient.
func isRetryableError(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	for _, s := range []string{"rate limit", "timeout", "overloaded", "503", "529"} {
		if strings.Contains(errLower, s) {
			return true
		}
	}
	return false
}
