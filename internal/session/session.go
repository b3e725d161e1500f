// ABOUTME: The per-tenant session: status, webhook endpoint, pairing code, connection handle.
// ABOUTME: All mutation goes through accessors that bump the update timestamp.

package session

import (
	"regexp"
	"sync"
	"time"

	"github.com/mamaya21/whatsapp-gateway/internal/transport"
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusStarting     Status = "starting"
	StatusQR           Status = "qr"
	StatusOnline       Status = "online"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// idPattern constrains operator-chosen session identifiers.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID reports whether id is an acceptable session identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Session is one tenant's connection to the messaging network. The
// identifier is immutable; everything else changes as the lifecycle
// advances. A Session owns at most one live connection handle, and the
// supervisor closes a replaced handle before installing its successor.
type Session struct {
	mu        sync.RWMutex
	id        string
	status    Status
	webhook   string
	lastQR    string
	createdAt time.Time
	updatedAt time.Time
	conn      transport.Client

	// rebuildMu serializes connection replacement so concurrent starts
	// cannot install two live handles for the same session.
	rebuildMu sync.Mutex
}

func newSession(id, webhookURL string) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		status:    StatusStarting,
		webhook:   webhookURL,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the immutable session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// WebhookURL returns the configured delivery endpoint, "" when unset.
func (s *Session) WebhookURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.webhook
}

// LastQR returns the most recent pairing code, "" once online.
func (s *Session) LastQR() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastQR
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the time of the last state or webhook change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Info is a point-in-time JSON view of a session.
type Info struct {
	SessionID  string    `json:"sessionId"`
	Status     Status    `json:"status"`
	WebhookURL string    `json:"webhookUrl,omitempty"`
	LastQR     string    `json:"lastQr,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Info snapshots the session for API responses.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		SessionID:  s.id,
		Status:     s.status,
		WebhookURL: s.webhook,
		LastQR:     s.lastQR,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if status == StatusOnline {
		s.lastQR = ""
	}
	s.updatedAt = time.Now()
}

func (s *Session) setWebhookURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhook = url
	s.updatedAt = time.Now()
}

func (s *Session) setQR(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusQR
	s.lastQR = code
	s.updatedAt = time.Now()
}

// installConn makes conn the session's live handle.
func (s *Session) installConn(conn transport.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

// currentConn returns the live handle, nil when none is installed.
func (s *Session) currentConn() transport.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// takeConn detaches and returns the live handle so the caller can
// close it. Returns nil when no handle is installed.
func (s *Session) takeConn() transport.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn := s.conn
	s.conn = nil
	return conn
}

// owns reports whether conn is still the session's live handle. Event
// loops of replaced connections use this to go quiet.
func (s *Session) owns(conn transport.Client) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn == conn
}
