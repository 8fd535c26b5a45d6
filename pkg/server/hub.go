package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randalmurphal/victoruno/pkg/flowgraph/event"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32

	// wsDefaultThread is the thread for socket messages that name none.
	wsDefaultThread = "web_session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// wsRequest is a client frame.
type wsRequest struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// wsResponse is a server frame: a reply to the sender or a broadcast event.
type wsResponse struct {
	Type     string       `json:"type"`
	Message  string       `json:"message,omitempty"`
	ThreadID string       `json:"thread_id,omitempty"`
	Event    *event.Event `json:"event,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	// threads the socket has spoken on; guarded by hub.mu.
	threads map[string]struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		threads: make(map[string]struct{}),
	}
}

// hub tracks connected sockets and fans assistant events out to them.
// A thread's events only reach sockets that have used that thread.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	logger  *slog.Logger

	pongWait   time.Duration
	pingPeriod time.Duration
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients:    make(map[*client]struct{}),
		logger:     logger,
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

// join subscribes c to the events of threadID.
func (h *hub) join(c *client, threadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.threads[threadID] = struct{}{}
}

func (h *hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcastEvent is the hub's event.Handler. Events without a thread go to
// every socket; thread events go to the sockets that joined the thread.
// Slow clients miss events rather than stall the bus.
func (h *hub) broadcastEvent(_ context.Context, e event.Event) error {
	frame, err := json.Marshal(wsResponse{Type: "event", ThreadID: e.ThreadID, Event: &e})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if e.ThreadID != "" {
			if _, ok := c.threads[e.ThreadID]; !ok {
				continue
			}
		}
		select {
		case c.send <- frame:
		default:
			h.logger.Debug("websocket client lagging, event dropped", slog.String("event_type", e.Type))
		}
	}
	return nil
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// send queues a frame for c; it reports false when c is gone or lagging.
func (h *hub) send(c *client, v wsResponse) bool {
	frame, err := json.Marshal(v)
	if err != nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(conn)
	if !s.hub.add(c) {
		conn.Close()
		return
	}
	s.logger.Info("websocket connected", slog.String("remote", r.RemoteAddr))

	go s.hub.writePump(c)
	s.readPump(r.Context(), c)

	s.hub.remove(c)
	s.logger.Info("websocket disconnected", slog.String("remote", r.RemoteAddr))
}

// readPump answers client frames one at a time until the socket closes.
func (s *Server) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(s.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.hub.pongWait))
	})

	for {
		var req wsRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		resp := s.answer(ctx, c, req)
		// Pongs are not read while a turn runs.
		c.conn.SetReadDeadline(time.Now().Add(s.hub.pongWait))
		if !s.hub.send(c, resp) {
			return
		}
	}
}

func (s *Server) answer(ctx context.Context, c *client, req wsRequest) wsResponse {
	thread := req.ThreadID
	if thread == "" {
		thread = wsDefaultThread
	}
	if req.Type == "chat" || req.Type == "reset" {
		s.hub.join(c, thread)
	}

	switch req.Type {
	case "chat":
		if req.Message == "" {
			return wsResponse{Type: "error", Message: "message is required"}
		}
		return wsResponse{Type: "response", Message: s.assistant.Chat(ctx, req.Message, thread), ThreadID: thread}
	case "search":
		return wsResponse{Type: "response", Message: s.assistant.WebSearch(ctx, req.Message)}
	case "reset":
		s.assistant.ResetConversation(thread)
		return wsResponse{Type: "response", Message: "Conversation reset successfully", ThreadID: thread}
	default:
		return wsResponse{Type: "error", Message: "unknown message type: " + req.Type}
	}
}

// writePump owns all writes to the socket.
func (h *hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
