// ABOUTME: In-memory Client and Dialer implementations for tests.
// ABOUTME: Scriptable event streams plus recording of sends, closes, and logouts.

package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SendCall records one SendText invocation on a MockClient.
type SendCall struct {
	To   string
	Text string
}

// MockClient is a scriptable Client for tests. Emit pushes events onto
// the stream; sends, logouts and closes are recorded for assertions.
type MockClient struct {
	mu        sync.Mutex
	events    chan Event
	sends     []SendCall
	closed    bool
	loggedOut bool

	// SendErr, when set, is returned by SendText.
	SendErr error

	// Directory backs LookupPhone; a nil map answers every lookup
	// negatively.
	Directory map[string]string
}

// NewMockClient creates a MockClient with a buffered event stream.
func NewMockClient() *MockClient {
	return &MockClient{events: make(chan Event, 32)}
}

// Emit places an event on the stream. Emitting after Close panics,
// matching a real connection's contract that the stream ends on close.
func (c *MockClient) Emit(evt Event) {
	c.events <- evt
}

func (c *MockClient) Events() <-chan Event { return c.events }

func (c *MockClient) SendText(_ context.Context, to, text string) (SendResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return SendResult{}, errors.New("connection closed")
	}
	if c.SendErr != nil {
		return SendResult{}, c.SendErr
	}
	c.sends = append(c.sends, SendCall{To: to, Text: text})
	return SendResult{
		MessageID: fmt.Sprintf("mock-%d", len(c.sends)),
		Timestamp: time.Now(),
	}, nil
}

func (c *MockClient) Logout(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut = true
	return nil
}

func (c *MockClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

// LookupPhone implements the resolver's optional directory capability.
func (c *MockClient) LookupPhone(address string) (string, bool) {
	mapped, ok := c.Directory[address]
	return mapped, ok
}

// Sends returns a copy of the recorded SendText calls.
func (c *MockClient) Sends() []SendCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SendCall, len(c.sends))
	copy(out, c.sends)
	return out
}

// Closed reports whether Close has been called.
func (c *MockClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LoggedOut reports whether Logout has been called.
func (c *MockClient) LoggedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedOut
}

// MockDialer hands out MockClients and records every dial. SetDialErr
// makes subsequent dials fail, and OnDial (when set) intercepts each
// dial before a client is produced.
type MockDialer struct {
	mu      sync.Mutex
	dials   []string
	clients []*MockClient
	dialErr error

	OnDial func(sessionID string)
}

// NewMockDialer creates an empty MockDialer.
func NewMockDialer() *MockDialer {
	return &MockDialer{}
}

func (d *MockDialer) Dial(_ context.Context, sessionID string) (Client, error) {
	d.mu.Lock()
	onDial := d.OnDial
	d.mu.Unlock()
	if onDial != nil {
		onDial(sessionID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials = append(d.dials, sessionID)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	client := NewMockClient()
	d.clients = append(d.clients, client)
	return client, nil
}

// SetDialErr makes subsequent dials fail with err; nil restores success.
func (d *MockDialer) SetDialErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr = err
}

// Dials returns the session ids dialed so far, in order.
func (d *MockDialer) Dials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.dials))
	copy(out, d.dials)
	return out
}

// Client returns the i-th client handed out, or nil.
func (d *MockDialer) Client(i int) *MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.clients) {
		return nil
	}
	return d.clients[i]
}
