// ABOUTME: Boundary to the underlying messaging-network client.
// ABOUTME: Defines the connection contract, its event stream, and close status codes.

package transport

import (
	"context"
	"time"
)

// Close status codes reported by the network on connection teardown.
const (
	// CodeLoggedOut is the authoritative signal that the account
	// unlinked this session; stored credentials are no longer valid.
	CodeLoggedOut = 401

	// CodeRestartRequired is sent immediately after a pairing
	// handshake and demands one reconnect with the same credentials.
	CodeRestartRequired = 515
)

// Event is one item on a connection's event stream. The concrete types
// are QREvent, ConnectedEvent, DisconnectedEvent, MessagesEvent and
// DeviceSyncEvent.
type Event interface{ isEvent() }

// QREvent carries a freshly issued pairing code for operator scanning.
type QREvent struct {
	Code string
}

// ConnectedEvent signals that the connection reached the online state.
type ConnectedEvent struct{}

// DisconnectedEvent signals that the connection closed. Code carries
// the network's status code, zero for plain transport errors.
type DisconnectedEvent struct {
	Code   int
	Reason string
}

// MessagesEvent carries a batch of inbound messages.
type MessagesEvent struct {
	Messages []Message
}

// DeviceSyncEvent reports device-list activity for a phone-domain
// address. It is a weak identity signal, consumed as a bulk-migration
// hint.
type DeviceSyncEvent struct {
	Address string
}

func (QREvent) isEvent()           {}
func (ConnectedEvent) isEvent()    {}
func (DisconnectedEvent) isEvent() {}
func (MessagesEvent) isEvent()     {}
func (DeviceSyncEvent) isEvent()   {}

// SendResult reports the outcome of a successful send.
type SendResult struct {
	MessageID string
	Timestamp time.Time
}

// Client is one live connection to the messaging network. The gateway
// owns exactly one Client per session at a time; a replaced Client is
// fully closed before the new one is installed.
type Client interface {
	// Events returns the connection's event stream. The channel is
	// closed when the connection is torn down.
	Events() <-chan Event

	// SendText delivers a plain text message to a fully qualified
	// address.
	SendText(ctx context.Context, to, text string) (SendResult, error)

	// Logout invalidates this session on the remote network.
	Logout(ctx context.Context) error

	// Close tears down the connection and closes the event stream.
	// It is safe to call multiple times.
	Close() error
}

// Dialer opens connections. Dial performs the handshake (or pairing
// flow, when no credentials exist yet for the session) and returns a
// connected Client whose event stream is already live.
type Dialer interface {
	Dial(ctx context.Context, sessionID string) (Client, error)
}
