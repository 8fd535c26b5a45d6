package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/randalmurphal/victoruno/pkg/assistant"
)

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

type chatResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
	Success  bool   `json:"success"`
}

type searchResponse struct {
	Query   string `json:"query"`
	Results string `json:"results"`
}

type historyResponse struct {
	ThreadID string              `json:"thread_id"`
	Messages []assistant.Message `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = assistant.DefaultThread
	}

	reply := s.assistant.Chat(r.Context(), req.Message, req.ThreadID)
	s.writeJSON(w, http.StatusOK, chatResponse{Response: reply, ThreadID: req.ThreadID})
}

// handleUpload stores the posted file under UploadDir with a unique prefix
// and processes it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Errorf("file too large, maximum size is %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid file name"))
		return
	}
	formats := s.assistant.Info().DocumentFormats
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if len(formats) > 0 && !slices.Contains(formats, ext) {
		s.writeError(w, http.StatusBadRequest,
			fmt.Errorf("unsupported file format, supported formats: %s", strings.Join(formats, ", ")))
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	dest := filepath.Join(s.cfg.UploadDir, uuid.NewString()+"_"+name)
	out, err := os.Create(dest)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	_, copyErr := io.Copy(out, file)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(dest)
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("save upload: %w", err))
		return
	}

	message := s.assistant.ProcessDocument(r.Context(), dest)
	s.writeJSON(w, http.StatusOK, uploadResponse{
		Filename: name,
		Message:  message,
		Success:  strings.HasPrefix(message, "Successfully processed"),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	s.writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Results: s.assistant.WebSearch(r.Context(), query),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	threadID := r.URL.Query().Get("thread_id")
	if threadID == "" {
		var req chatRequest
		err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
		threadID = req.ThreadID
	}
	if threadID == "" {
		threadID = assistant.DefaultThread
	}

	s.assistant.ResetConversation(threadID)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Conversation reset successfully",
		"thread_id": threadID,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	threadID := r.URL.Query().Get("thread_id")
	if threadID == "" {
		threadID = assistant.DefaultThread
	}
	msgs := s.assistant.History(threadID)
	if msgs == nil {
		msgs = []assistant.Message{}
	}
	s.writeJSON(w, http.StatusOK, historyResponse{ThreadID: threadID, Messages: msgs})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := s.assistant.Info()
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"agent":   info.Name,
		"version": info.Version,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.assistant.Info())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
