// ABOUTME: In-process development transport that pairs instantly and echoes sends.
// ABOUTME: Lets the gateway run end-to-end without a real network backend.

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LoopbackDialer is the development backend. Each dialed connection
// issues a pairing code, comes online shortly after, and echoes every
// outbound send back as an inbound message from the recipient. The
// first dial per session runs the pairing flow; later dials reuse the
// remembered pairing, matching the credential-reuse behavior of a real
// backend.
type LoopbackDialer struct {
	mu     sync.Mutex
	paired map[string]bool
	logger *slog.Logger
}

// NewLoopbackDialer creates the development dialer.
func NewLoopbackDialer(logger *slog.Logger) *LoopbackDialer {
	return &LoopbackDialer{
		paired: make(map[string]bool),
		logger: logger.With("component", "loopback"),
	}
}

func (d *LoopbackDialer) Dial(_ context.Context, sessionID string) (Client, error) {
	d.mu.Lock()
	alreadyPaired := d.paired[sessionID]
	d.paired[sessionID] = true
	d.mu.Unlock()

	c := &loopbackClient{
		sessionID: sessionID,
		events:    make(chan Event, 32),
		logger:    d.logger,
	}

	if alreadyPaired {
		c.events <- ConnectedEvent{}
	} else {
		c.events <- QREvent{Code: "loopback-" + uuid.New().String()}
		time.AfterFunc(500*time.Millisecond, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if !c.closed {
				c.events <- ConnectedEvent{}
			}
		})
	}
	return c, nil
}

type loopbackClient struct {
	mu        sync.Mutex
	sessionID string
	events    chan Event
	closed    bool
	logger    *slog.Logger
}

func (c *loopbackClient) Events() <-chan Event { return c.events }

// SendText echoes the message back as an inbound reply from the
// recipient, so webhook delivery can be exercised locally.
func (c *loopbackClient) SendText(_ context.Context, to, text string) (SendResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return SendResult{}, fmt.Errorf("loopback connection for %s is closed", c.sessionID)
	}

	id := strings.ToUpper(uuid.New().String())
	c.events <- MessagesEvent{Messages: []Message{{
		ID:        "echo-" + id,
		Chat:      to,
		Timestamp: time.Now(),
		Content:   Content{Conversation: text},
	}}}

	return SendResult{MessageID: id, Timestamp: time.Now()}, nil
}

func (c *loopbackClient) Logout(context.Context) error {
	c.logger.Info("loopback logout", "session_id", c.sessionID)
	return nil
}

func (c *loopbackClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}
