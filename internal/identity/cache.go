// ABOUTME: Durable mapping from linked-identity addresses to resolved phone numbers.
// ABOUTME: In-memory map mirrored to a flat JSON document by a background writer.

package identity

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Cache maps linked-identity addresses to phone numbers. Entries are
// populated opportunistically and never expire: once an identity has
// been resolved it is assumed stable for the lifetime of the cache.
//
// Every update schedules a wholesale rewrite of the backing file.
// Persistence is best-effort: write failures are logged and never
// surfaced to callers, and a missing or corrupt file at load time
// just starts the cache empty.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	path    string
	logger  *slog.Logger

	save   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewCache loads the cache from path and starts the background writer.
func NewCache(path string, logger *slog.Logger) *Cache {
	c := &Cache{
		entries: make(map[string]string),
		path:    path,
		logger:  logger.With("component", "identity-cache"),
		save:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	c.load()
	c.wg.Add(1)
	go c.writer()
	return c
}

// load reads the backing document once. Absence or corruption is non-fatal.
func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("identity cache unreadable, starting empty", "path", c.path, "error", err)
		}
		return
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("identity cache corrupt, starting empty", "path", c.path, "error", err)
		return
	}

	c.entries = entries
	c.logger.Info("identity cache loaded", "path", c.path, "entries", len(entries))
}

// Get returns the phone number resolved for a linked-identity address.
func (c *Cache) Get(address string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.entries[address]
	return p, ok
}

// Put records a resolved mapping and schedules persistence. Existing
// entries are never overwritten; Put returns false if the address was
// already resolved.
func (c *Cache) Put(address, number string) bool {
	c.mu.Lock()
	if _, exists := c.entries[address]; exists {
		c.mu.Unlock()
		return false
	}
	c.entries[address] = number
	c.mu.Unlock()

	select {
	case c.save <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of cached mappings.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// writer persists the cache whenever an update is signalled.
func (c *Cache) writer() {
	defer c.wg.Done()
	for {
		select {
		case <-c.save:
			c.persist()
		case <-c.done:
			return
		}
	}
}

// persist rewrites the whole document from a snapshot of the map.
func (c *Cache) persist() {
	c.mu.RLock()
	snapshot := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		c.logger.Error("encoding identity cache", "error", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		c.logger.Error("creating identity cache directory", "path", c.path, "error", err)
		return
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		c.logger.Error("writing identity cache", "path", c.path, "error", err)
		return
	}

	c.logger.Debug("identity cache persisted", "entries", len(snapshot))
}

// Close stops the background writer after flushing any pending update.
// It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()

	// A Put can signal after the writer has exited; drain the channel
	// and write the final state regardless.
	select {
	case <-c.save:
	default:
	}
	c.persist()
}
