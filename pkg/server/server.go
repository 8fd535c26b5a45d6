// Package server exposes the assistant over HTTP and WebSocket. It talks to
// the assistant only through its facade methods.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/randalmurphal/victoruno/pkg/assistant"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/event"
)

// Assistant is the facade the server drives.
type Assistant interface {
	Chat(ctx context.Context, message, threadID string) string
	ProcessDocument(ctx context.Context, ref string) string
	WebSearch(ctx context.Context, query string) string
	ResetConversation(threadID string)
	History(threadID string) []assistant.Message
	Info() assistant.Info
	Events(h event.Handler, types ...string) (*event.Subscription, error)
}

// Config configures a Server.
type Config struct {
	Addr string
	// UploadDir receives files posted to /upload.
	UploadDir string
	// MaxUploadBytes bounds an upload request body. Default 10 MiB plus
	// form overhead.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server serves the assistant API.
type Server struct {
	cfg       Config
	assistant Assistant
	hub       *hub
	sub       *event.Subscription
	http      *http.Server
	logger    *slog.Logger
}

// New creates a server and subscribes it to the assistant's events.
func New(a Assistant, cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10*1024*1024 + 64*1024
	}
	if cfg.UploadDir == "" {
		return nil, errors.New("server: upload dir is required")
	}

	s := &Server{
		cfg:       cfg,
		assistant: a,
		hub:       newHub(cfg.Logger),
		logger:    cfg.Logger,
	}

	sub, err := a.Events(s.hub.broadcastEvent)
	if err != nil {
		return nil, fmt.Errorf("subscribe to assistant events: %w", err)
	}
	s.sub = sub

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /info", s.handleInfo)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("web server listening", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, closes WebSocket clients and detaches
// from the assistant's events.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sub.Unsubscribe()
	s.hub.close()
	return s.http.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack hands the connection to the WebSocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
