package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/victoruno/pkg/assistant"
	"github.com/randalmurphal/victoruno/pkg/config"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/victoruno/pkg/search"
)

// testBuild shares one store across command runs so history survives the
// way it does with the sqlite store.
func testBuild(store checkpoint.Store) func(config.Settings, *slog.Logger) (*assistant.Agent, error) {
	return func(s config.Settings, logger *slog.Logger) (*assistant.Agent, error) {
		model := assistant.ModelFunc(func(_ context.Context, msgs []assistant.Message) (string, error) {
			for i := len(msgs) - 1; i >= 0; i-- {
				if msgs[i].Role == assistant.RoleUser {
					return "echo: " + msgs[i].Content, nil
				}
			}
			return "echo: nothing", nil
		})
		searcher := assistant.SearchFunc(func(_ context.Context, q string, _ int) ([]search.Result, error) {
			return []search.Result{{Title: "About " + q, URL: "https://example.com"}}, nil
		})
		return assistant.New(model,
			assistant.WithName(s.AgentName),
			assistant.WithStore(nopCloser{store}),
			assistant.WithSearch(searcher),
			assistant.WithLogger(logger))
	}
}

// nopCloser keeps the shared store open when an agent closes.
type nopCloser struct{ checkpoint.Store }

func (nopCloser) Close() error { return nil }

type harness struct {
	t      *testing.T
	store  checkpoint.Store
	config string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("data_dir: %s\nstore:\n  kind: memory\nweb:\n  host: 127.0.0.1\n", dir)
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))
	return &harness{t: t, store: checkpoint.NewMemoryStore(), config: cfg}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCmdWith(testBuild(h.store))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", h.config}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "version flag", args: []string{"--version"}},
		{name: "help flag", args: []string{"--help"}},
		{name: "unknown command", args: []string{"nonexistent-command"}, wantErr: true},
		{name: "ask needs a message", args: []string{"ask"}, wantErr: true},
		{name: "bad store kind", args: []string{"--store", "redis", "info"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newHarness(t).run("", tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAskThenHistory(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "ask", "hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello there\n", out)

	out, err = h.run("", "history", "--json")
	require.NoError(t, err)
	var history []assistant.Message
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	assert.Equal(t, []assistant.Message{
		assistant.UserMessage("hello there"),
		assistant.AssistantMessage("echo: hello there"),
	}, history)

	out, err = h.run("", "--thread", "other", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No messages yet.")
}

func TestChatREPL(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("first\n\n/history\n/reset\nsecond\n/quit\nnever sent\n", "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "echo: first")
	assert.Contains(t, out, "Conversation reset.")
	assert.Contains(t, out, "echo: second")
	assert.NotContains(t, out, "never sent")
	// Input is not echoed, so only /history prints the user's line.
	assert.Equal(t, 1, strings.Count(out, "You: first"))
}

func TestChatEndsAtEOF(t *testing.T) {
	out, err := newHarness(t).run("only line", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "echo: only line")
}

func TestDoc(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("three little words"), 0o600))

	out, err := h.run("", "doc", notes, filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully processed 'notes.txt'. Content: 3 words, 18 characters.")
	assert.Contains(t, out, "file not found")
}

func TestSearch(t *testing.T) {
	out, err := newHarness(t).run("", "search", "go", "generics")
	require.NoError(t, err)
	assert.Contains(t, out, "Web search results for 'go generics':")
	assert.Contains(t, out, "1. **About go generics**")
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "ask", "hi")
	require.NoError(t, err)

	out, err := h.run("", "reset")
	require.NoError(t, err)
	assert.Equal(t, "Conversation default reset.\n", out)
}

func TestInfo(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "info", "--json")
	require.NoError(t, err)
	var info assistant.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "VictorUno", info.Name)
	assert.Equal(t, assistant.Version, info.Version)

	out, err = h.run("", "--thread", "work", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "VictorUno")
	assert.Contains(t, out, "memory")
	assert.Contains(t, out, "work")
}

// syncBuffer lets the test read output while serve is still writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	cmd := newRootCmdWith(testBuild(h.store))
	out := &syncBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", h.config, "serve", "--port", "18731"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "listening on http://127.0.0.1:18731")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop")
	}
}

// closeCounter counts Close calls on a store.
type closeCounter struct {
	checkpoint.Store
	mu     sync.Mutex
	closes int
}

func (c *closeCounter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *closeCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func TestAgentClosedAfterCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "success", args: []string{"ask", "hello"}},
		{name: "failure after start", args: []string{"serve", "--port", "70000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			store := &closeCounter{Store: checkpoint.NewMemoryStore()}
			build := func(s config.Settings, logger *slog.Logger) (*assistant.Agent, error) {
				return assistant.New(assistant.ModelFunc(func(context.Context, []assistant.Message) (string, error) {
					return "ok", nil
				}), assistant.WithStore(store), assistant.WithLogger(logger))
			}

			cmd := newRootCmdWith(build)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append([]string{"--config", h.config}, tt.args...))
			err := cmd.Execute()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, store.count())
		})
	}
}
