// ABOUTME: Tests for the SQLite credential store.
// ABOUTME: Validates round-trips, replacement, idempotent deletes, and reopening.

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	s, err := NewCredentialStore(filepath.Join(t.TempDir(), "data", "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCredentialStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "shop1", []byte("blob-1")))

	blob, err := s.Get(ctx, "shop1")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob-1"), blob)
}

func TestCredentialStore_PutReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "shop1", []byte("blob-1")))
	require.NoError(t, s.Put(ctx, "shop1", []byte("blob-2")))

	blob, err := s.Get(ctx, "shop1")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob-2"), blob)
}

func TestCredentialStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCredentialStore_DeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "shop1", []byte("blob-1")))
	require.NoError(t, s.Delete(ctx, "shop1"))
	require.NoError(t, s.Delete(ctx, "shop1"))

	_, err := s.Get(ctx, "shop1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCredentialStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	ctx := context.Background()

	first, err := NewCredentialStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "shop1", []byte("blob-1")))
	require.NoError(t, first.Close())

	second, err := NewCredentialStore(path)
	require.NoError(t, err)
	defer second.Close()

	blob, err := second.Get(ctx, "shop1")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob-1"), blob)
}
