// Package phone converts between raw phone-number strings and the address
// forms used by the messaging network, including the country-code
// heuristic for 9-digit national numbers.
package phone
