// Package transport defines the contract between the gateway and the
// underlying messaging-network client: the per-session connection
// interface, its event stream, and the inbound message model.
//
// The real protocol client lives behind the Dialer interface and is
// wired in by the binary. The package ships a loopback backend for
// local development and mock implementations for tests.
package transport
