// ABOUTME: SQLite-backed storage of session credential blobs using modernc.org/sqlite.
// ABOUTME: Automatic schema creation; the supervisor deletes, the transport reads/writes.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates no credentials exist for the session.
var ErrNotFound = errors.New("credentials not found")

// CredentialStore persists the opaque credential blob the transport
// produces when a session is paired. One row per session id.
type CredentialStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCredentialStore opens (or creates) the credential database at the
// given path. Parent directories are created if needed.
func NewCredentialStore(path string) (*CredentialStore, error) {
	logger := slog.Default().With("component", "credential-store")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &CredentialStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("credential store initialized", "path", path)
	return s, nil
}

func (s *CredentialStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS credentials (
			session_id TEXT PRIMARY KEY,
			blob BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	_, err := s.db.Exec(schema)
	return err
}

// Put stores or replaces the credential blob for a session.
func (s *CredentialStore) Put(ctx context.Context, sessionID string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (session_id, blob, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		sessionID, blob, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storing credentials for %s: %w", sessionID, err)
	}
	return nil
}

// Get returns the credential blob for a session, or ErrNotFound.
func (s *CredentialStore) Get(ctx context.Context, sessionID string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT blob FROM credentials WHERE session_id = ?", sessionID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials for %s: %w", sessionID, err)
	}
	return blob, nil
}

// Delete removes the credentials for a session. Deleting a session
// that has none is a no-op.
func (s *CredentialStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("deleting credentials for %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *CredentialStore) Close() error {
	return s.db.Close()
}
