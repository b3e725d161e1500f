// ABOUTME: Last-observed correlation between device-list activity and a phone number.
// ABOUTME: A weak, short-lived signal used only to seed otherwise-unresolved identities.

package identity

import (
	"sync"
	"time"
)

// hintWindow bounds how long an observation stays usable. The bound is
// exclusive: an observation aged exactly hintWindow is already stale.
const hintWindow = 5 * time.Second

// Hint holds the single most recent device-activity observation,
// overwritten on each new one. It is a heuristic, not an authoritative
// mapping: consumers must only use it to seed identities that have no
// verified resolution yet.
type Hint struct {
	mu         sync.Mutex
	source     string
	number     string
	observedAt time.Time
}

// Observe records a new correlation, replacing any previous one.
func (h *Hint) Observe(source, number string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.source = source
	h.number = number
	h.observedAt = time.Now()
}

// Recent returns the observed phone number if the observation is still
// inside the validity window.
func (h *Hint) Recent() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.number == "" || time.Since(h.observedAt) >= hintWindow {
		return "", false
	}
	return h.number, true
}
