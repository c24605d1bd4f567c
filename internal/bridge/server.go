package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"dispatch/internal/config"
	"dispatch/internal/llm"
	"dispatch/internal/logging"
	"dispatch/internal/toolcall"
)

// Dispatcher is the model surface the bridge depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, prompt string) (llm.Outcome, error)
}

// Server is the agent-facing HTTP front end.
type Server struct {
	bind           string
	maxPromptBytes int64
	logger         *slog.Logger
	llm            Dispatcher
	relay          Relay

	listener net.Listener
	server   *http.Server
}

// DispatchRequest is the body of POST /v1/dispatch.
type DispatchRequest struct {
	Prompt string `json:"prompt"`
}

// DispatchResponse is the reply for POST /v1/dispatch. Exactly one of Reply
// and JobID is set.
type DispatchResponse struct {
	Reply string `json:"reply,omitempty"`
	JobID string `json:"job_id,omitempty"`
}

// NewServer configures the bridge HTTP server.
func NewServer(cfg *config.Config, dispatcher Dispatcher, relay Relay, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("bridge requires config")
	}
	if dispatcher == nil {
		return nil, errors.New("bridge requires an llm dispatcher")
	}
	if relay == nil {
		relay = NewSocketRelay(cfg.SocketPath())
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	bind := strings.TrimSpace(cfg.Bridge.Bind)
	if bind == "" {
		return nil, errors.New("bridge bind address required")
	}

	srv := &Server{
		bind:           bind,
		maxPromptBytes: int64(cfg.Bridge.MaxPromptBytes),
		logger:         logging.NewComponentLogger(logger, "bridge"),
		llm:            dispatcher,
		relay:          relay,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/dispatch", srv.handleDispatch)
	mux.HandleFunc("/v1/dispatch/stream", srv.handleDispatchStream)
	mux.HandleFunc("/healthz", srv.handleHealthz)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Model round trips dominate request time, so the write timeout
		// is generous.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

// Start binds the listener and serves until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("bridge listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("bridge server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("bridge listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.readPrompt(w, r)
	if !ok {
		return
	}

	outcome, err := s.llm.Dispatch(r.Context(), prompt)
	if err != nil {
		s.logger.Error("model dispatch failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, "model request failed")
		return
	}

	if outcome.ToolCall == nil {
		s.writeJSON(w, http.StatusOK, DispatchResponse{Reply: outcome.Reply})
		return
	}

	jobID, err := s.relayToolCall(outcome.ToolCall)
	if err != nil {
		s.logger.Error("job relay failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, DispatchResponse{JobID: jobID})
}

func (s *Server) handleDispatchStream(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.readPrompt(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	emit("status", map[string]string{"state": "dispatching"})

	outcome, err := s.llm.Dispatch(r.Context(), prompt)
	if err != nil {
		s.logger.Error("model dispatch failed", logging.Error(err))
		emit("error", map[string]string{"error": "model request failed"})
		emit("done", map[string]string{})
		return
	}

	if outcome.ToolCall == nil {
		emit("reply", map[string]string{"reply": outcome.Reply})
		emit("done", map[string]string{})
		return
	}

	emit("status", map[string]string{"state": "enqueueing"})
	jobID, err := s.relayToolCall(outcome.ToolCall)
	if err != nil {
		s.logger.Error("job relay failed", logging.Error(err))
		emit("error", map[string]string{"error": err.Error()})
		emit("done", map[string]string{})
		return
	}
	emit("job", map[string]string{"job_id": jobID})
	emit("done", map[string]string{})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readPrompt(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", false
	}
	body := http.MaxBytesReader(w, r.Body, s.maxPromptBytes)
	var req DispatchRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "prompt too large")
			return "", false
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		s.writeError(w, http.StatusBadRequest, "prompt is required")
		return "", false
	}
	return prompt, true
}

func (s *Server) relayToolCall(call *toolcall.Call) (string, error) {
	if err := call.Validate(); err != nil {
		return "", fmt.Errorf("invalid tool call: %w", err)
	}
	params, err := toolcall.ParseEnqueueArguments(call.Arguments)
	if err != nil {
		return "", fmt.Errorf("invalid tool arguments: %w", err)
	}
	jobID, err := s.relay.Enqueue(params)
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	s.logger.Info("job relayed", logging.String("job_id", jobID))
	return jobID, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
