// Package httpapi exposes the session supervisor to operators over a
// token-authenticated HTTP JSON API.
package httpapi
