// ABOUTME: Tests for the identity resolver's lookup order and fallbacks.
// ABOUTME: Covers cache precedence, directory write-through, and hint seeding.

package identity

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mamaya21/whatsapp-gateway/internal/phone"
)

// mapDirectory is a Directory backed by a plain map.
type mapDirectory map[string]string

func (d mapDirectory) LookupPhone(address string) (string, bool) {
	mapped, ok := d[address]
	return mapped, ok
}

func newTestResolver(t *testing.T) (*Resolver, *Cache, *Hint) {
	t.Helper()
	cache := NewCache(filepath.Join(t.TempDir(), "identities.json"), testLogger())
	t.Cleanup(cache.Close)
	hint := &Hint{}
	return NewResolver(phone.New(""), cache, hint, testLogger()), cache, hint
}

func TestResolve_PhoneDomainIsAuthoritative(t *testing.T) {
	r, _, _ := newTestResolver(t)

	res := r.Resolve(nil, "51936809481@s.whatsapp.net")
	assert.Equal(t, "51936809481@s.whatsapp.net", res.Address)
	assert.Equal(t, "51936809481", res.Phone)
}

func TestResolve_CacheHit(t *testing.T) {
	r, cache, hint := newTestResolver(t)
	cache.Put("111@lid", "51936809481")

	// A live hint must not shadow an existing cache entry.
	hint.Observe("51900000000@s.whatsapp.net", "51900000000")

	res := r.Resolve(nil, "111@lid")
	assert.Equal(t, "51936809481@s.whatsapp.net", res.Address)
	assert.Equal(t, "51936809481", res.Phone)
}

func TestResolve_DirectoryWritesThrough(t *testing.T) {
	r, cache, _ := newTestResolver(t)
	dir := mapDirectory{"111@lid": "51936809481@s.whatsapp.net"}

	res := r.Resolve(dir, "111@lid")
	assert.Equal(t, "51936809481", res.Phone)

	// Second resolution works without the directory.
	res = r.Resolve(nil, "111@lid")
	assert.Equal(t, "51936809481", res.Phone)

	p, ok := cache.Get("111@lid")
	assert.True(t, ok)
	assert.Equal(t, "51936809481", p)
}

func TestResolve_DirectoryUnusableResultIgnored(t *testing.T) {
	r, cache, _ := newTestResolver(t)
	dir := mapDirectory{"111@lid": "222@lid"}

	res := r.Resolve(dir, "111@lid")
	assert.Equal(t, "111@lid", res.Address)
	assert.Empty(t, res.Phone)
	assert.Equal(t, 0, cache.Len())
}

func TestResolve_HintSeedsUnresolved(t *testing.T) {
	r, cache, hint := newTestResolver(t)
	hint.Observe("51936809481@s.whatsapp.net", "51936809481")

	res := r.Resolve(nil, "111@lid")
	assert.Equal(t, "51936809481@s.whatsapp.net", res.Address)
	assert.Equal(t, "51936809481", res.Phone)

	p, ok := cache.Get("111@lid")
	assert.True(t, ok)
	assert.Equal(t, "51936809481", p)
}

func TestResolve_StaleHintDoesNotSeed(t *testing.T) {
	r, cache, hint := newTestResolver(t)
	hint.Observe("51936809481@s.whatsapp.net", "51936809481")
	hint.observedAt = time.Now().Add(-6 * time.Second)

	res := r.Resolve(nil, "111@lid")
	assert.Equal(t, "111@lid", res.Address)
	assert.Empty(t, res.Phone)
	assert.Equal(t, 0, cache.Len())
}

func TestResolve_UnresolvedFallsBackToOpaqueHandle(t *testing.T) {
	r, _, _ := newTestResolver(t)

	res := r.Resolve(nil, "111@lid")
	assert.Equal(t, "111@lid", res.Address)
	assert.Empty(t, res.Phone)
}

func TestResolve_OtherShapesPassThrough(t *testing.T) {
	r, _, _ := newTestResolver(t)

	res := r.Resolve(nil, "51936809481-1610000000@g.us")
	assert.Equal(t, "51936809481-1610000000@g.us", res.Address)
	assert.Empty(t, res.Phone)

	res = r.Resolve(nil, "51936809481@broadcast")
	assert.Equal(t, "51936809481@broadcast", res.Address)
	assert.Equal(t, "51936809481", res.Phone)
}
