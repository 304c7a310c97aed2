// Package testutil provides shared helpers for tests.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/draft"
	"github.com/starford/ansuz/internal/notestore"
	"github.com/starford/ansuz/internal/prefs"
)

// OpenDrafts creates a temporary draft database, cleaned up with the test.
func OpenDrafts(t *testing.T) *draft.DB {
	t.Helper()

	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := draft.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("draft.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// NewStore builds a note store switched to a fresh temp folder.
func NewStore(t *testing.T) *notestore.Store {
	t.Helper()

	store := NewDetachedStore(t)
	store.SwitchFolder(t.TempDir())
	return store
}

// NewDetachedStore builds a note store with no folder selected.
func NewDetachedStore(t *testing.T) *notestore.Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return notestore.New(OpenDrafts(t), prefs.New(filepath.Join(t.TempDir(), "folder")), logger)
}
