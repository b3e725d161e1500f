// ABOUTME: Best-effort resolution of raw sender addresses to phone numbers.
// ABOUTME: Consults the cache, the transport's own directory, then the activity hint.

package identity

import (
	"log/slog"

	"github.com/mamaya21/whatsapp-gateway/internal/phone"
)

// Directory is an optional per-connection lookup table the transport
// may expose, mapping linked-identity addresses to phone-domain
// addresses it has learned through the protocol itself.
type Directory interface {
	LookupPhone(address string) (string, bool)
}

// Resolution is the outcome of resolving a raw address. Phone is empty
// when no phone number could be determined; Address then carries the
// original opaque handle so the message is still attributable.
type Resolution struct {
	Address string
	Phone   string
}

// Resolver reconciles the network's two addressing schemes.
type Resolver struct {
	norm   phone.Normalizer
	cache  *Cache
	hint   *Hint
	logger *slog.Logger
}

// NewResolver creates a Resolver over the shared cache and hint state.
func NewResolver(norm phone.Normalizer, cache *Cache, hint *Hint, logger *slog.Logger) *Resolver {
	return &Resolver{
		norm:   norm,
		cache:  cache,
		hint:   hint,
		logger: logger.With("component", "resolver"),
	}
}

// Resolve maps a raw inbound address to its best-known identity.
// Phone-domain addresses are authoritative. Linked-identity addresses
// go through the cache, then the transport directory (written through
// to the cache), then a recent activity hint; when everything misses,
// the opaque address is returned unchanged with no phone. Any other
// address shape passes through with the digit-extraction heuristic.
func (r *Resolver) Resolve(dir Directory, raw string) Resolution {
	switch {
	case phone.IsUser(raw):
		p, _ := r.norm.ToPhone(raw)
		return Resolution{Address: raw, Phone: p}

	case phone.IsLinked(raw):
		if p, ok := r.cache.Get(raw); ok {
			return Resolution{Address: r.norm.ToAddress(p), Phone: p}
		}

		if dir != nil {
			if mapped, ok := dir.LookupPhone(raw); ok && phone.IsUser(mapped) {
				if p, ok := r.norm.ToPhone(mapped); ok {
					r.cache.Put(raw, p)
					r.logger.Debug("identity resolved via transport directory", "address", raw, "phone", p)
					return Resolution{Address: r.norm.ToAddress(p), Phone: p}
				}
			}
		}

		if p, ok := r.hint.Recent(); ok {
			if r.cache.Put(raw, p) {
				r.logger.Debug("identity seeded from activity hint", "address", raw, "phone", p)
			}
			if p, ok := r.cache.Get(raw); ok {
				return Resolution{Address: r.norm.ToAddress(p), Phone: p}
			}
		}

		return Resolution{Address: raw}

	default:
		p, _ := r.norm.ToPhone(raw)
		return Resolution{Address: raw, Phone: p}
	}
}
