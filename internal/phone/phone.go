// ABOUTME: Address normalization between raw phone numbers and network address forms.
// ABOUTME: Pure conversion helpers; no I/O and no state beyond the country-code setting.

package phone

import "strings"

// Address servers used by the messaging network.
const (
	// UserServer is the domain of phone-number-derived addresses.
	UserServer = "s.whatsapp.net"
	// LinkedServer is the domain of opaque linked-identity addresses,
	// which never reveal a phone number directly.
	LinkedServer = "lid"
	// GroupServer is the domain of group conversation addresses.
	GroupServer = "g.us"
)

// DefaultCountryCode is prefixed to 9-digit national numbers.
const DefaultCountryCode = "51"

// Normalizer converts between phone numbers and network addresses.
// The zero value uses DefaultCountryCode.
type Normalizer struct {
	countryCode string
}

// New creates a Normalizer with the given country-code prefix for
// 9-digit national numbers. An empty code falls back to DefaultCountryCode.
func New(countryCode string) Normalizer {
	return Normalizer{countryCode: countryCode}
}

func (n Normalizer) country() string {
	if n.countryCode == "" {
		return DefaultCountryCode
	}
	return n.countryCode
}

// Server returns the domain portion of an address, or "" if the
// address carries no domain separator.
func Server(address string) string {
	if i := strings.IndexByte(address, '@'); i >= 0 {
		return address[i+1:]
	}
	return ""
}

// IsUser reports whether the address is on the phone-number domain.
func IsUser(address string) bool { return Server(address) == UserServer }

// IsLinked reports whether the address is on the linked-identity domain.
func IsLinked(address string) bool { return Server(address) == LinkedServer }

// IsGroup reports whether the address is a group conversation address.
func IsGroup(address string) bool { return Server(address) == GroupServer }

// user returns the portion of an address before the domain separator,
// with any device suffix (":<n>") removed.
func user(address string) string {
	u := address
	if i := strings.IndexByte(u, '@'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, ':'); i >= 0 {
		u = u[:i]
	}
	return u
}

// digits strips everything but ASCII digits from s.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalDigits strips non-digits from a raw number or address
// user-portion and applies the 9-digit country-code heuristic.
// No length validation is applied; callers enforce their own bounds.
func (n Normalizer) CanonicalDigits(s string) string {
	d := digits(user(s))
	if len(d) == 9 {
		d = n.country() + d
	}
	return d
}

// ToPhone extracts a phone number from an address. Linked-identity
// addresses are unresolvable and always report ok=false, as do results
// outside the 10-15 digit range. Group and unknown domains fall through
// to the same digit-extraction heuristic as phone-domain addresses.
func (n Normalizer) ToPhone(address string) (string, bool) {
	if IsLinked(address) {
		return "", false
	}
	d := n.CanonicalDigits(address)
	if len(d) < 10 || len(d) > 15 {
		return "", false
	}
	return d, true
}

// ToAddress converts a raw phone number into a phone-domain address.
func (n Normalizer) ToAddress(number string) string {
	return n.CanonicalDigits(number) + "@" + UserServer
}
