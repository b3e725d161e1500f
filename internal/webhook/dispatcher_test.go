// ABOUTME: Tests for webhook dispatch, payload shape, and failure isolation.
// ABOUTME: Uses httptest endpoints; delivery is asserted with Eventually.

package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (c *capture) add(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies = append(c.bodies, b)
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func (c *capture) first() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bodies[0]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_DeliversPayload(t *testing.T) {
	caught := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		caught.add(body)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}))
	defer srv.Close()

	d := NewDispatcher(0, testLogger())
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	number := "51936809481"
	d.Dispatch(srv.URL, MessageEvent{
		Event:         "message",
		SessionID:     "shop1",
		From:          number,
		Phone:         &number,
		Text:          "hi",
		Type:          "text",
		MessageID:     "ABC123",
		RemoteAddress: "51936809481@s.whatsapp.net",
		Timestamp:     ts,
	})

	require.Eventually(t, func() bool { return caught.count() == 1 }, time.Second, 10*time.Millisecond)

	var got map[string]any
	require.NoError(t, json.Unmarshal(caught.first(), &got))
	assert.Equal(t, "message", got["event"])
	assert.Equal(t, "shop1", got["sessionId"])
	assert.Equal(t, "51936809481", got["from"])
	assert.Equal(t, "51936809481", got["phone"])
	assert.Equal(t, "hi", got["text"])
	assert.Equal(t, "ABC123", got["messageId"])
	assert.Equal(t, "51936809481@s.whatsapp.net", got["remoteAddress"])
	assert.Nil(t, got["participantAddress"])
	assert.Equal(t, "2026-08-30T12:00:00Z", got["timestamp"])
}

func TestDispatcher_NullPhoneSerializedExplicitly(t *testing.T) {
	caught := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		caught.add(body)
	}))
	defer srv.Close()

	d := NewDispatcher(0, testLogger())
	d.Dispatch(srv.URL, MessageEvent{
		Event:         "message",
		SessionID:     "shop1",
		From:          "111@lid",
		Text:          "hi",
		Type:          "text",
		MessageID:     "ABC123",
		RemoteAddress: "111@lid",
		Timestamp:     time.Now(),
	})

	require.Eventually(t, func() bool { return caught.count() == 1 }, time.Second, 10*time.Millisecond)

	var got map[string]any
	require.NoError(t, json.Unmarshal(caught.first(), &got))
	_, present := got["phone"]
	assert.True(t, present, "phone must be present even when null")
	assert.Nil(t, got["phone"])
}

func TestDispatcher_FailuresDoNotPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(0, testLogger())

	// Rejected endpoint, unreachable endpoint: neither may panic or block.
	d.Dispatch(srv.URL, MessageEvent{Event: "message", SessionID: "shop1"})
	d.Dispatch("http://127.0.0.1:1/nope", MessageEvent{Event: "message", SessionID: "shop1"})

	time.Sleep(50 * time.Millisecond)
}
