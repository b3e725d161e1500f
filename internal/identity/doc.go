// Package identity reconciles the network's linked-identity addresses
// with phone numbers, backed by a durable best-effort cache and a
// short-lived device-activity hint.
package identity
