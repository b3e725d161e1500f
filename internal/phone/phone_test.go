// ABOUTME: Tests for address normalization and phone-number extraction.
// ABOUTME: Covers the country-code heuristic, device suffixes, and length bounds.

package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPhone(t *testing.T) {
	n := New("")

	tests := []struct {
		name    string
		address string
		want    string
		ok      bool
	}{
		{"phone domain address", "51936809481@s.whatsapp.net", "51936809481", true},
		{"device suffix stripped", "51936809481:12@s.whatsapp.net", "51936809481", true},
		{"bare number", "51936809481", "51936809481", true},
		{"nine digit national gets country code", "936809481@s.whatsapp.net", "51936809481", true},
		{"linked identity never resolves", "123456789012345@lid", "", false},
		{"linked identity with device suffix", "123456789012345:3@lid", "", false},
		{"too short", "12345@s.whatsapp.net", "", false},
		{"too long", "1234567890123456@s.whatsapp.net", "", false},
		{"fifteen digits accepted", "123456789012345@s.whatsapp.net", "123456789012345", true},
		{"ten digits accepted", "1234567890@s.whatsapp.net", "1234567890", true},
		{"group falls through to digits", "51936809481-1610000000@g.us", "", false},
		{"unknown domain uses digit heuristic", "+51 936 809 481@broadcast", "51936809481", true},
		{"formatting characters stripped", "+51-936-809-481", "51936809481", true},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.ToPhone(tt.address)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToAddress(t *testing.T) {
	n := New("")

	assert.Equal(t, "51936809481@s.whatsapp.net", n.ToAddress("51936809481"))
	assert.Equal(t, "51936809481@s.whatsapp.net", n.ToAddress("936809481"))
	assert.Equal(t, "51936809481@s.whatsapp.net", n.ToAddress("+51 936-809-481"))
}

// Nine-digit nationals round-trip to a stable country-prefixed address,
// and already-prefixed numbers normalize idempotently.
func TestNormalizationIdempotent(t *testing.T) {
	n := New("")

	addr := n.ToAddress("936809481")
	p, ok := n.ToPhone(addr)
	assert.True(t, ok)
	assert.Len(t, p, 11)
	assert.Equal(t, addr, n.ToAddress(p))

	for _, number := range []string{"1234567890", "51936809481", "123456789012345"} {
		once := n.ToAddress(number)
		assert.Equal(t, once, n.ToAddress(once[:len(once)-len("@"+UserServer)]))
	}
}

func TestCustomCountryCode(t *testing.T) {
	n := New("55")

	assert.Equal(t, "55936809481@s.whatsapp.net", n.ToAddress("936809481"))

	p, ok := n.ToPhone("936809481@s.whatsapp.net")
	assert.True(t, ok)
	assert.Equal(t, "55936809481", p)
}

func TestServerHelpers(t *testing.T) {
	assert.Equal(t, "s.whatsapp.net", Server("x@s.whatsapp.net"))
	assert.Equal(t, "", Server("51936809481"))
	assert.True(t, IsUser("1@s.whatsapp.net"))
	assert.True(t, IsLinked("1@lid"))
	assert.True(t, IsGroup("1-2@g.us"))
	assert.False(t, IsUser("1@lid"))
}
