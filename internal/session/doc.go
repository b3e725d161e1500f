// Package session implements the gateway's session supervisor: the
// table of per-tenant sessions, each one's connection lifecycle state
// machine, recovery after closures, inbound message routing, and
// outbound sends.
//
// # Lifecycle
//
// A session moves through starting → qr → online in the happy path.
// Closures land it in disconnected, from which exactly one automatic
// rebuild is attempted; a failed rebuild parks it in error until an
// operator issues another start. Starting an already-live session is
// idempotent and only refreshes the webhook URL.
//
// # Concurrency
//
// Each connection's events are consumed by a single goroutine, so one
// session's events are processed strictly in arrival order. Sessions
// proceed independently; the only cross-session state is the shared
// identity cache and activity hint, which are internally synchronized.
package session
