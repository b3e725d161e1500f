// ABOUTME: Owns the session table and drives each session's connection lifecycle.
// ABOUTME: Classifies closures, rebuilds connections, and routes inbound messages.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/mamaya21/whatsapp-gateway/internal/identity"
	"github.com/mamaya21/whatsapp-gateway/internal/phone"
	"github.com/mamaya21/whatsapp-gateway/internal/transport"
	"github.com/mamaya21/whatsapp-gateway/internal/webhook"
)

// Dispatcher delivers composed message events without blocking the
// caller and without letting delivery failures propagate back.
type Dispatcher interface {
	Dispatch(url string, event webhook.MessageEvent)
}

// CredentialDeleter wipes a session's durable credentials.
type CredentialDeleter interface {
	Delete(ctx context.Context, sessionID string) error
}

// Params carries the Supervisor's collaborators.
type Params struct {
	Dialer      transport.Dialer
	Resolver    *identity.Resolver
	Hint        *identity.Hint
	Credentials CredentialDeleter
	Dispatcher  Dispatcher
	Normalizer  phone.Normalizer
	Logger      *slog.Logger

	// Production suppresses console rendering of pairing codes.
	Production bool
}

// Supervisor manages every tenant session: creation, pairing, recovery
// after closures, inbound routing, outbound sends, and teardown.
type Supervisor struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	dialer     transport.Dialer
	resolver   *identity.Resolver
	hint       *identity.Hint
	creds      CredentialDeleter
	dispatcher Dispatcher
	norm       phone.Normalizer
	logger     *slog.Logger
	production bool
}

// NewSupervisor creates a Supervisor with an empty session table.
func NewSupervisor(p Params) *Supervisor {
	return &Supervisor{
		sessions:   make(map[string]*Session),
		dialer:     p.Dialer,
		resolver:   p.Resolver,
		hint:       p.Hint,
		creds:      p.Credentials,
		dispatcher: p.Dispatcher,
		norm:       p.Normalizer,
		logger:     p.Logger.With("component", "supervisor"),
		production: p.Production,
	}
}

// StartSession creates a session, or returns the existing one. A start
// against a live session only refreshes the webhook URL; a start
// against a disconnected or errored session tears the stale connection
// down and rebuilds it under the same session identity.
func (s *Supervisor) StartSession(ctx context.Context, sessionID, webhookURL string) (*Session, error) {
	if !ValidID(sessionID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}

	s.mu.Lock()
	if sess, ok := s.sessions[sessionID]; ok {
		s.mu.Unlock()
		if webhookURL != "" {
			sess.setWebhookURL(webhookURL)
		}
		switch sess.Status() {
		case StatusStarting, StatusQR, StatusOnline:
			return sess, nil
		}
		if err := s.rebuild(ctx, sess); err != nil {
			sess.setStatus(StatusError)
			return nil, fmt.Errorf("starting session %s: %w", sessionID, err)
		}
		return sess, nil
	}

	sess := newSession(sessionID, webhookURL)
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	conn, err := s.dialer.Dial(ctx, sessionID)
	if err != nil {
		s.remove(sessionID)
		return nil, fmt.Errorf("starting session %s: %w", sessionID, err)
	}
	sess.installConn(conn)
	go s.eventLoop(sess, conn)

	s.logger.Info("session started", "session_id", sessionID)
	return sess, nil
}

// rebuild replaces a session's connection in place. The old handle is
// fully closed before the new one is installed; close errors are
// swallowed since the connection is stale either way. Rebuilds for one
// session are serialized, and a caller that lost the race to a rebuild
// already in flight returns without dialing a second handle.
func (s *Supervisor) rebuild(ctx context.Context, sess *Session) error {
	sess.rebuildMu.Lock()
	defer sess.rebuildMu.Unlock()

	switch sess.Status() {
	case StatusStarting, StatusQR, StatusOnline:
		return nil
	}

	if old := sess.takeConn(); old != nil {
		_ = old.Close()
	}
	sess.setStatus(StatusStarting)

	conn, err := s.dialer.Dial(ctx, sess.ID())
	if err != nil {
		return err
	}
	sess.installConn(conn)
	go s.eventLoop(sess, conn)

	s.logger.Info("session connection rebuilt", "session_id", sess.ID())
	return nil
}

// GetSession returns the session for an identifier.
func (s *Supervisor) GetSession(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// ListSessions returns all sessions ordered by identifier.
func (s *Supervisor) ListSessions() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SendMessage delivers text through an online session. The recipient
// is either a raw phone number or an already-qualified address.
func (s *Supervisor) SendMessage(ctx context.Context, sessionID, to, text string) (transport.SendResult, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return transport.SendResult{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if status := sess.Status(); status != StatusOnline {
		return transport.SendResult{}, fmt.Errorf("%w: %s is %s", ErrSessionNotOnline, sessionID, status)
	}
	if strings.TrimSpace(text) == "" {
		return transport.SendResult{}, ErrEmptyText
	}

	addr, err := s.recipientAddress(to)
	if err != nil {
		return transport.SendResult{}, err
	}

	conn := sess.currentConn()
	if conn == nil {
		return transport.SendResult{}, fmt.Errorf("%w: %s has no live connection", ErrSessionNotOnline, sessionID)
	}

	result, err := conn.SendText(ctx, addr, text)
	if err != nil {
		return transport.SendResult{}, fmt.Errorf("sending from session %s to %s: %w", sessionID, addr, err)
	}
	return result, nil
}

// recipientAddress normalizes a send target. Inputs already carrying a
// domain separator pass through unchanged.
func (s *Supervisor) recipientAddress(to string) (string, error) {
	if strings.Contains(to, "@") {
		return to, nil
	}
	d := s.norm.CanonicalDigits(to)
	if len(d) < 8 || len(d) > 15 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, to)
	}
	return d + "@" + phone.UserServer, nil
}

// LogoutSession tears a session down: connection closed, table entry
// removed, durable credentials deleted. Unknown identifiers are a
// no-op.
func (s *Supervisor) LogoutSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if conn := sess.takeConn(); conn != nil {
		if err := conn.Logout(ctx); err != nil {
			s.logger.Warn("remote logout failed", "session_id", sessionID, "error", err)
		}
		_ = conn.Close()
	}
	sess.setStatus(StatusDisconnected)

	if err := s.creds.Delete(ctx, sessionID); err != nil {
		s.logger.Error("deleting credentials", "session_id", sessionID, "error", err)
	}

	s.logger.Info("session logged out", "session_id", sessionID)
	return nil
}

// Close shuts every connection down without deleting credentials, so
// sessions resume on the next process start.
func (s *Supervisor) Close() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		if conn := sess.takeConn(); conn != nil {
			_ = conn.Close()
		}
	}
}

func (s *Supervisor) remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// eventLoop consumes one connection's event stream in arrival order.
// It exits when the stream closes, when the connection reports a
// closure, or when the session no longer owns this handle.
func (s *Supervisor) eventLoop(sess *Session, conn transport.Client) {
	for evt := range conn.Events() {
		if !sess.owns(conn) {
			return
		}
		switch e := evt.(type) {
		case transport.QREvent:
			s.handlePairingCode(sess, e.Code)
		case transport.ConnectedEvent:
			sess.setStatus(StatusOnline)
			s.logger.Info("session online", "session_id", sess.ID())
		case transport.DisconnectedEvent:
			s.handleClosure(sess, conn, e)
			return
		case transport.MessagesEvent:
			s.handleMessages(sess, conn, e.Messages)
		case transport.DeviceSyncEvent:
			s.observeActivity(e.Address)
		}
	}
}

func (s *Supervisor) handlePairingCode(sess *Session, code string) {
	sess.setQR(code)
	s.logger.Info("pairing code issued", "session_id", sess.ID())

	if !s.production {
		yellow := color.New(color.FgYellow, color.Bold)
		yellow.Printf("\n  Scan to pair session %q:\n", sess.ID())
		fmt.Printf("  %s\n\n", code)
	}
}

// handleClosure classifies a connection closure and schedules exactly
// one recovery attempt. There is no retry cap or backoff: every
// closure triggers one immediate rebuild, and a failed rebuild parks
// the session in the error state until an operator starts it again.
func (s *Supervisor) handleClosure(sess *Session, _ transport.Client, e transport.DisconnectedEvent) {
	sess.setStatus(StatusDisconnected)
	sessionID := sess.ID()
	webhookURL := sess.WebhookURL()

	switch e.Code {
	case transport.CodeLoggedOut:
		// The account unlinked this session: wipe everything now,
		// then re-pair from scratch under the same identifier.
		s.logger.Info("session logged out by remote", "session_id", sessionID, "reason", e.Reason)
		if conn := sess.takeConn(); conn != nil {
			_ = conn.Close()
		}
		s.remove(sessionID)
		if err := s.creds.Delete(context.Background(), sessionID); err != nil {
			s.logger.Error("deleting credentials", "session_id", sessionID, "error", err)
		}
		go s.restart(sessionID, webhookURL)

	case transport.CodeRestartRequired:
		// Mandatory reconnect right after the pairing handshake;
		// existing credentials stay valid.
		s.logger.Info("restart required after pairing", "session_id", sessionID)
		if conn := sess.takeConn(); conn != nil {
			_ = conn.Close()
		}
		s.remove(sessionID)
		go s.restart(sessionID, webhookURL)

	default:
		s.logger.Warn("session disconnected",
			"session_id", sessionID,
			"code", e.Code,
			"reason", e.Reason,
		)
		go func() {
			if err := s.rebuild(context.Background(), sess); err != nil {
				sess.setStatus(StatusError)
				s.logger.Error("reconnect failed, session parked in error state",
					"session_id", sessionID,
					"error", err,
				)
			}
		}()
	}
}

func (s *Supervisor) restart(sessionID, webhookURL string) {
	if _, err := s.StartSession(context.Background(), sessionID, webhookURL); err != nil {
		s.logger.Error("session restart failed", "session_id", sessionID, "error", err)
	}
}

// handleMessages forwards each usable inbound message to the session's
// webhook. Dispatch is fire-and-forget; nothing here waits on delivery.
func (s *Supervisor) handleMessages(sess *Session, conn transport.Client, msgs []transport.Message) {
	dir, _ := conn.(identity.Directory)

	for _, m := range msgs {
		sender := m.Sender()
		if sender == "" || m.FromMe {
			continue
		}
		text, kind, ok := m.Content.PlainText()
		if !ok {
			continue
		}

		res := s.resolver.Resolve(dir, sender)

		from := res.Address
		var phoneField *string
		if res.Phone != "" {
			from = res.Phone
			p := res.Phone
			phoneField = &p
		}

		// The remote address is the conversation, not the sender. They
		// only differ for group chats, where the sender rides along as
		// the participant.
		remote := res.Address
		var participant *string
		if m.Participant != "" && m.Chat != "" {
			remote = s.resolver.Resolve(dir, m.Chat).Address
			p := res.Address
			participant = &p
		}

		url := sess.WebhookURL()
		if url == "" {
			s.logger.Debug("no webhook configured, dropping message event",
				"session_id", sess.ID(),
				"message_id", m.ID,
			)
			continue
		}

		s.dispatcher.Dispatch(url, webhook.MessageEvent{
			Event:              "message",
			SessionID:          sess.ID(),
			From:               from,
			Phone:              phoneField,
			Text:               text,
			Type:               kind,
			MessageID:          m.ID,
			RemoteAddress:      remote,
			ParticipantAddress: participant,
			Timestamp:          m.Timestamp,
		})
	}
}

// observeActivity feeds phone-domain device activity into the shared
// bulk-migration hint.
func (s *Supervisor) observeActivity(address string) {
	if p, ok := s.norm.ToPhone(address); ok {
		s.hint.Observe(address, p)
	}
}
