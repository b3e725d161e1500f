// Package webhook delivers inbound message events to per-session HTTP
// endpoints on a best-effort, fire-and-forget basis.
package webhook
