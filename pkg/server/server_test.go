package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/victoruno/pkg/assistant"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/event"
	"github.com/randalmurphal/victoruno/pkg/search"
)

type fixture struct {
	srv       *Server
	http      *httptest.Server
	uploadDir string
}

func echo(_ context.Context, msgs []assistant.Message) (string, error) {
	return "echo: " + msgs[len(msgs)-1].Content, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, echo, nil)
}

// newFixtureWith builds a fixture around model; tune runs before the
// server starts accepting connections.
func newFixtureWith(t *testing.T, model assistant.ModelFunc, tune func(*Server)) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	searcher := assistant.SearchFunc(func(_ context.Context, q string, _ int) ([]search.Result, error) {
		return []search.Result{{Title: "Result for " + q, URL: "https://example.com"}}, nil
	})
	agent, err := assistant.New(model,
		assistant.WithSearch(searcher),
		assistant.WithLogger(logger))
	require.NoError(t, err)

	uploadDir := t.TempDir()
	srv, err := New(agent, Config{UploadDir: uploadDir, Logger: logger})
	require.NoError(t, err)
	if tune != nil {
		tune(srv)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.hub.close()
		srv.sub.Unsubscribe()
		agent.Close()
	})
	return &fixture{srv: srv, http: ts, uploadDir: uploadDir}
}

func (f *fixture) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.http.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.http.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestChat(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/chat", chatRequest{Message: "hello", ThreadID: "web-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[chatResponse](t, resp)
	assert.Equal(t, chatResponse{Response: "echo: hello", ThreadID: "web-1"}, got)
}

func TestChat_DefaultThread(t *testing.T) {
	f := newFixture(t)

	got := decode[chatResponse](t, f.postJSON(t, "/chat", map[string]string{"message": "hi"}))
	assert.Equal(t, assistant.DefaultThread, got.ThreadID)
}

func TestChat_BadRequests(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.http.URL+"/chat", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, http.StatusBadRequest, f.postJSON(t, "/chat", chatRequest{Message: "  "}).StatusCode)
}

func TestChat_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusMethodNotAllowed, f.get(t, "/chat").StatusCode)
}

func upload(t *testing.T, f *fixture, name string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(f.http.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	resp := upload(t, f, "notes.txt", []byte("one two three"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[uploadResponse](t, resp)
	assert.Equal(t, "notes.txt", got.Filename)
	assert.True(t, got.Success)
	assert.Contains(t, got.Message, "Content: 3 words, 13 characters.")

	entries, err := os.ReadDir(f.uploadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_notes.txt"))
}

func TestUpload_UnsupportedFormat(t *testing.T) {
	f := newFixture(t)

	resp := upload(t, f, "setup.exe", []byte{0x4d, 0x5a})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[errorResponse](t, resp).Error, "unsupported file format")
}

func TestUpload_MissingFile(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.http.URL+"/upload", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpload_TooLarge(t *testing.T) {
	f := newFixture(t)
	f.srv.cfg.MaxUploadBytes = 1024

	resp := upload(t, f, "big.txt", bytes.Repeat([]byte("a"), 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	got := decode[searchResponse](t, f.get(t, "/search?q=golang"))
	assert.Equal(t, "golang", got.Query)
	assert.Contains(t, got.Results, "1. **Result for golang**")

	empty := decode[searchResponse](t, f.get(t, "/search"))
	assert.Equal(t, "No search results found.", empty.Results)
}

func TestHistoryAndReset(t *testing.T) {
	f := newFixture(t)
	f.postJSON(t, "/chat", chatRequest{Message: "remember me", ThreadID: "h1"})

	hist := decode[historyResponse](t, f.get(t, "/history?thread_id=h1"))
	assert.Equal(t, "h1", hist.ThreadID)
	assert.Equal(t, []assistant.Message{
		assistant.UserMessage("remember me"),
		assistant.AssistantMessage("echo: remember me"),
	}, hist.Messages)

	resp := f.postJSON(t, "/reset?thread_id=h1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "h1", decode[map[string]string](t, resp)["thread_id"])

	empty := decode[historyResponse](t, f.get(t, "/history?thread_id=unknown"))
	assert.NotNil(t, empty.Messages)
	assert.Empty(t, empty.Messages)
}

func TestReset_BadBody(t *testing.T) {
	f := newFixture(t)
	f.postJSON(t, "/chat", chatRequest{Message: "keep me"})

	resp, err := http.Post(f.http.URL+"/reset", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	hist := decode[historyResponse](t, f.get(t, "/history"))
	assert.Len(t, hist.Messages, 2)
}

func TestReset_EmptyBodyUsesDefaultThread(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.http.URL+"/reset", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, assistant.DefaultThread, decode[map[string]string](t, resp)["thread_id"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	got := decode[map[string]string](t, f.get(t, "/health"))
	assert.Equal(t, "healthy", got["status"])
	assert.Equal(t, "VictorUno", got["agent"])
	assert.Equal(t, assistant.Version, got["version"])
}

func dialWS(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil returns the first frame of the given type.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string) wsResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame wsResponse
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == frameType {
			return frame
		}
	}
}

func TestWebSocket_Chat(t *testing.T) {
	f := newFixture(t)
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "chat", Message: "hi"}))
	got := readUntil(t, conn, "response")

	assert.Equal(t, "echo: hi", got.Message)
	assert.Equal(t, wsDefaultThread, got.ThreadID)
}

func TestWebSocket_UnknownType(t *testing.T) {
	f := newFixture(t)
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "dance"}))
	got := readUntil(t, conn, "error")
	assert.Contains(t, got.Message, "dance")
}

// turnsUntil collects turn events on conn until one carries message.
func turnsUntil(t *testing.T, conn *websocket.Conn, message string) []assistant.TurnCompleted {
	t.Helper()
	var turns []assistant.TurnCompleted
	for {
		frame := readUntil(t, conn, "event")
		require.NotNil(t, frame.Event)
		if frame.Event.Type != assistant.EventTurnCompleted {
			continue
		}
		turn, err := event.Decode[assistant.TurnCompleted](*frame.Event)
		require.NoError(t, err)
		assert.Equal(t, frame.ThreadID, turn.ThreadID)
		turns = append(turns, turn)
		if turn.Message == message {
			return turns
		}
	}
}

func TestWebSocket_TurnEventsStayOnTheirThread(t *testing.T) {
	f := newFixture(t)
	alice := dialWS(t, f)
	bob := dialWS(t, f)

	require.NoError(t, alice.WriteJSON(wsRequest{Type: "chat", Message: "hello", ThreadID: "alice"}))
	readUntil(t, alice, "response")
	require.NoError(t, bob.WriteJSON(wsRequest{Type: "chat", Message: "hi", ThreadID: "bob"}))
	readUntil(t, bob, "response")

	f.postJSON(t, "/chat", chatRequest{Message: "my pin is 4321", ThreadID: "alice"})
	f.postJSON(t, "/chat", chatRequest{Message: "what time is it", ThreadID: "bob"})

	for _, turn := range turnsUntil(t, alice, "my pin is 4321") {
		assert.Equal(t, "alice", turn.ThreadID)
	}
	for _, turn := range turnsUntil(t, bob, "what time is it") {
		assert.Equal(t, "bob", turn.ThreadID)
		assert.NotContains(t, turn.Message, "4321")
		assert.NotContains(t, turn.Reply, "4321")
	}
}

func TestWebSocket_UnthreadedEventsReachEverySocket(t *testing.T) {
	f := newFixture(t)
	watcher := dialWS(t, f)
	require.Eventually(t, func() bool { return f.srv.hub.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.get(t, "/search?q=golang")

	got := readUntil(t, watcher, "event")
	require.NotNil(t, got.Event)
	assert.Equal(t, assistant.EventSearchCompleted, got.Event.Type)
	assert.Empty(t, got.ThreadID)
}

func TestWebSocket_SlowTurnKeepsSocket(t *testing.T) {
	slow := func(ctx context.Context, msgs []assistant.Message) (string, error) {
		time.Sleep(400 * time.Millisecond)
		return echo(ctx, msgs)
	}
	f := newFixtureWith(t, slow, func(s *Server) {
		s.hub.pongWait = 150 * time.Millisecond
		s.hub.pingPeriod = 100 * time.Millisecond
	})
	conn := dialWS(t, f)

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "chat", Message: "first"}))
	assert.Equal(t, "echo: first", readUntil(t, conn, "response").Message)

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "chat", Message: "second"}))
	assert.Equal(t, "echo: second", readUntil(t, conn, "response").Message)
}

func TestNew_RequiresUploadDir(t *testing.T) {
	agent, err := assistant.New(assistant.ModelFunc(func(context.Context, []assistant.Message) (string, error) {
		return "", nil
	}))
	require.NoError(t, err)
	defer agent.Close()

	_, err = New(agent, Config{})
	assert.Error(t, err)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestUploadDirCreated(t *testing.T) {
	f := newFixture(t)
	f.srv.cfg.UploadDir = filepath.Join(f.uploadDir, "nested", "dir")

	resp := upload(t, f, "a.md", []byte("# hi"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := os.Stat(f.srv.cfg.UploadDir)
	assert.NoError(t, err)
}
