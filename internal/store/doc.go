// Package store persists session credential blobs in SQLite.
package store
