// ABOUTME: Operator-facing HTTP JSON API over the session supervisor.
// ABOUTME: Maps supervisor errors onto caller-fixable vs internal status codes.

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mamaya21/whatsapp-gateway/internal/session"
	"github.com/mamaya21/whatsapp-gateway/internal/transport"
)

// SessionService is the supervisor surface the API exposes.
type SessionService interface {
	StartSession(ctx context.Context, sessionID, webhookURL string) (*session.Session, error)
	GetSession(sessionID string) (*session.Session, bool)
	ListSessions() []*session.Session
	SendMessage(ctx context.Context, sessionID, to, text string) (transport.SendResult, error)
	LogoutSession(ctx context.Context, sessionID string) error
}

// StartRequest is the JSON body for POST /api/sessions/{id}/start.
// The body is optional; an absent webhookUrl leaves the current one.
type StartRequest struct {
	WebhookURL string `json:"webhookUrl,omitempty"`
}

// SendRequest is the JSON body for POST /api/sessions/{id}/send.
type SendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// SendResponse reports a successful send.
type SendResponse struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// ListResponse wraps GET /api/sessions.
type ListResponse struct {
	Sessions []session.Info `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the operator HTTP API.
type Server struct {
	addr       string
	sessions   SessionService
	verifier   *TokenVerifier
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates the API server. Everything under /api requires a
// bearer token; /health is open for probes.
func NewServer(addr string, sessions SessionService, verifier *TokenVerifier, logger *slog.Logger) *Server {
	s := &Server{
		addr:     addr,
		sessions: sessions,
		verifier: verifier,
		logger:   logger.With("component", "httpapi"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/sessions/{id}/start", s.requireAuth(s.handleStart))
	mux.HandleFunc("GET /api/sessions", s.requireAuth(s.handleList))
	mux.HandleFunc("GET /api/sessions/{id}", s.requireAuth(s.handleGet))
	mux.HandleFunc("POST /api/sessions/{id}/send", s.requireAuth(s.handleSend))
	mux.HandleFunc("POST /api/sessions/{id}/logout", s.requireAuth(s.handleLogout))

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("http api listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sess, err := s.sessions.StartSession(r.Context(), sessionID, req.WebhookURL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	sessions := s.sessions.ListSessions()
	resp := ListResponse{Sessions: make([]session.Info, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, sess.Info())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.GetSession(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.sessions.SendMessage(r.Context(), r.PathValue("id"), req.To, req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SendResponse{
		MessageID: result.MessageID,
		Timestamp: result.Timestamp,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.LogoutSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps supervisor errors onto HTTP status codes: input
// problems the caller can fix are 4xx, everything else is a gateway
// failure.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, session.ErrInvalidRecipient),
		errors.Is(err, session.ErrEmptyText):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrSessionNotOnline):
		status = http.StatusConflict
	default:
		status = http.StatusBadGateway
		s.logger.Error("api request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
