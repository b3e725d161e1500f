// ABOUTME: Inbound message model and plain-text extraction.
// ABOUTME: Mirrors the network's content shapes, including the ephemeral wrapper.

package transport

import (
	"strings"
	"time"
)

// Message is one inbound message as delivered by the network.
type Message struct {
	// ID is the network's message identifier.
	ID string

	// Chat is the conversation address the message arrived on.
	Chat string

	// Participant is the sending member's address in group
	// conversations, empty for direct chats.
	Participant string

	// FromMe marks messages originated by this same session.
	FromMe bool

	Timestamp time.Time

	Content Content
}

// Sender returns the effective sender address: the group participant
// when present, else the conversation address.
func (m Message) Sender() string {
	if m.Participant != "" {
		return m.Participant
	}
	return m.Chat
}

// Content models the network's message body shapes. Exactly one of the
// fields is normally set; Ephemeral wraps the same shapes one level
// deeper for disappearing messages.
type Content struct {
	Conversation string
	ExtendedText *ExtendedText
	Ephemeral    *Content
}

// ExtendedText is the quoted/annotated text shape.
type ExtendedText struct {
	Text string
}

// PlainText extracts the message text and its shape kind ("text" or
// "extended_text"). It returns ok=false when the content holds no
// non-whitespace text in any known shape.
func (c Content) PlainText() (text, kind string, ok bool) {
	if strings.TrimSpace(c.Conversation) != "" {
		return c.Conversation, "text", true
	}
	if c.ExtendedText != nil && strings.TrimSpace(c.ExtendedText.Text) != "" {
		return c.ExtendedText.Text, "extended_text", true
	}
	if c.Ephemeral != nil {
		return c.Ephemeral.PlainText()
	}
	return "", "", false
}
