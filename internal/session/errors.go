// ABOUTME: Sentinel errors for the session supervisor's programmatic surface.
// ABOUTME: Callers classify with errors.Is; transport failures arrive wrapped.

package session

import "errors"

// ErrInvalidSessionID indicates the identifier fails the allowed pattern.
var ErrInvalidSessionID = errors.New("invalid session id")

// ErrSessionNotFound indicates no session exists for the identifier.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionNotOnline indicates the session is not in the online state.
var ErrSessionNotOnline = errors.New("session not online")

// ErrInvalidRecipient indicates the recipient could not be normalized
// into a usable address.
var ErrInvalidRecipient = errors.New("invalid recipient")

// ErrEmptyText indicates the outbound text is empty or whitespace-only.
var ErrEmptyText = errors.New("empty message text")
