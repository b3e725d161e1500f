// ABOUTME: Fire-and-forget delivery of inbound message events to per-session endpoints.
// ABOUTME: Bounded by a timeout; failures are logged, never retried, never surfaced.

package webhook

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 5 * time.Second

// MessageEvent is the payload posted for each forwarded inbound message.
type MessageEvent struct {
	Event              string    `json:"event"`
	SessionID          string    `json:"sessionId"`
	From               string    `json:"from"`
	Phone              *string   `json:"phone"`
	Text               string    `json:"text"`
	Type               string    `json:"type"`
	MessageID          string    `json:"messageId"`
	RemoteAddress      string    `json:"remoteAddress"`
	ParticipantAddress *string   `json:"participantAddress"`
	Timestamp          time.Time `json:"timestamp"`
}

// Dispatcher posts events to webhook endpoints without making callers
// wait for, or fail on, the outcome.
type Dispatcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. A zero timeout uses DefaultTimeout.
func NewDispatcher(timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "webhook"),
	}
}

// Dispatch launches a detached delivery of the event and returns
// immediately. The outcome is only observable in logs.
func (d *Dispatcher) Dispatch(url string, event MessageEvent) {
	deliveryID := uuid.New().String()
	go d.deliver(deliveryID, url, event)
}

func (d *Dispatcher) deliver(deliveryID, url string, event MessageEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("encoding webhook payload",
			"delivery_id", deliveryID,
			"session_id", event.SessionID,
			"error", err,
		)
		return
	}

	resp, err := d.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		d.logger.Warn("webhook delivery failed",
			"delivery_id", deliveryID,
			"session_id", event.SessionID,
			"url", url,
			"error", err,
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.logger.Warn("webhook delivery rejected",
			"delivery_id", deliveryID,
			"session_id", event.SessionID,
			"url", url,
			"status", resp.StatusCode,
		)
		return
	}

	d.logger.Debug("webhook delivered",
		"delivery_id", deliveryID,
		"session_id", event.SessionID,
		"message_id", event.MessageID,
	)
}
