package notestore

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/draft"
	"github.com/starford/ansuz/internal/prefs"
)

type env struct {
	store  *Store
	folder string
	dbPath string
	pref   string
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEnv(t *testing.T) *env {
	t.Helper()

	dbFile, err := os.CreateTemp("", "ansuz-store-test-*.db")
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

	prefPath := filepath.Join(t.TempDir(), "folder")
	folder := t.TempDir()

	s := New(db, prefs.New(prefPath), testLogger())
	s.SwitchFolder(folder)

	return &env{store: s, folder: s.Folder(), dbPath: dbFile.Name(), pref: prefPath}
}

func writeNote(t *testing.T, e *env, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.folder, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func entryFor(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func TestOpenReturnsDiskContentWithoutDraft(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "alpha.txt", "hi")

	got, err := e.store.Open("alpha.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "hi" {
		t.Errorf("content = %q, want hi", got)
	}
	if e.store.Selection() != "alpha.txt" {
		t.Errorf("selection = %q, want alpha.txt", e.store.Selection())
	}
}

func TestOpenMissingNoteIsReadError(t *testing.T) {
	e := testEnv(t)
	_, err := e.store.Open("ghost.txt")
	if !errors.Is(err, apperr.ErrRead) {
		t.Errorf("error = %v, want apperr.ErrRead", err)
	}
	if e.store.Selection() != "" {
		t.Errorf("selection = %q, want none", e.store.Selection())
	}
}

func TestEditMarksDirtyAndOpenPrefersDraft(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "alpha.txt", "hi")

	if err := e.store.Edit("alpha.txt", "hi there"); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	entries, err := e.store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	entry, ok := entryFor(entries, "alpha.txt")
	if !ok || !entry.Dirty {
		t.Errorf("alpha.txt dirty = %v, want true", entry.Dirty)
	}

	got, err := e.store.Open("alpha.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "hi there" {
		t.Errorf("content = %q, want draft content", got)
	}

	// The real file is untouched until Save.
	onDisk, _ := os.ReadFile(filepath.Join(e.folder, "alpha.txt"))
	if string(onDisk) != "hi" {
		t.Errorf("disk content = %q, want hi", onDisk)
	}
}

func TestSaveClearsDirtyAndWritesDisk(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "alpha.txt", "hi")
	_ = e.store.Edit("alpha.txt", "hi there")

	if err := e.store.Save("alpha.txt", "hi there"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, _ := e.store.List()
	entry, _ := entryFor(entries, "alpha.txt")
	if entry.Dirty {
		t.Error("note should be clean after save")
	}

	got, err := e.store.Open("alpha.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "hi there" {
		t.Errorf("content = %q, want hi there", got)
	}
	onDisk, _ := os.ReadFile(filepath.Join(e.folder, "alpha.txt"))
	if string(onDisk) != "hi there" {
		t.Errorf("disk content = %q, want hi there", onDisk)
	}
}

func TestDraftSurvivesRestart(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "alpha.txt", "hi")
	if err := e.store.Edit("alpha.txt", "recovered edits"); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	// Restart-equivalent: fresh draft DB handle, fresh store, Restore.
	db, err := draft.Open(e.dbPath)
	if err != nil {
		t.Fatalf("reopen drafts: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s2 := New(db, prefs.New(e.pref), testLogger())
	s2.Restore("")

	if s2.Folder() != e.folder {
		t.Fatalf("restored folder = %q, want %q", s2.Folder(), e.folder)
	}
	got, err := s2.Open("alpha.txt")
	if err != nil {
		t.Fatalf("Open after restart: %v", err)
	}
	if got != "recovered edits" {
		t.Errorf("content = %q, want draft content", got)
	}
	entries, _ := s2.List()
	entry, _ := entryFor(entries, "alpha.txt")
	if !entry.Dirty {
		t.Error("note should still be dirty after restart")
	}
}

func TestRenameCarriesDraft(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "old.txt", "disk")
	_ = e.store.Edit("old.txt", "draft content")
	if _, err := e.store.Open("old.txt"); err != nil {
		t.Fatal(err)
	}

	if err := e.store.Rename("old.txt", "new.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	entries, _ := e.store.List()
	if _, ok := entryFor(entries, "old.txt"); ok {
		t.Error("old name still listed after rename")
	}
	entry, ok := entryFor(entries, "new.txt")
	if !ok || !entry.Dirty {
		t.Errorf("new.txt = %+v, want listed and dirty", entry)
	}

	got, err := e.store.Open("new.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "draft content" {
		t.Errorf("content = %q, want draft content", got)
	}
	if e.store.Selection() != "new.txt" {
		t.Errorf("selection = %q, want new.txt", e.store.Selection())
	}
}

func TestRenameRejectsBadNames(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "a.txt", "x")
	writeNote(t, e, "taken.txt", "y")

	cases := []struct {
		newName string
		exists  bool
	}{
		{"", false},
		{"Upper.txt", false},
		{"sub/name.txt", false},
		{"a.txt", false},     // unchanged
		{"taken.txt", true},  // collision
		{"TAKEN.txt", false}, // upper-case fails validation first
	}
	for _, c := range cases {
		err := e.store.Rename("a.txt", c.newName)
		if !errors.Is(err, apperr.ErrRename) {
			t.Errorf("Rename(a.txt, %q) = %v, want apperr.ErrRename", c.newName, err)
		}
		if c.exists && !errors.Is(err, apperr.ErrExists) {
			t.Errorf("Rename(a.txt, %q) = %v, want apperr.ErrExists", c.newName, err)
		}
	}
}

func TestRenameCollisionIsCaseInsensitive(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "a.txt", "x")
	writeNote(t, e, "Taken.txt", "y") // externally created, mixed case

	err := e.store.Rename("a.txt", "taken.txt")
	if !errors.Is(err, apperr.ErrExists) {
		t.Errorf("error = %v, want apperr.ErrExists", err)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	e := testEnv(t)
	if err := e.store.Create("fresh.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	writeNote(t, e, "fresh.txt", "existing content")
	if err := e.store.Create("fresh.txt"); err != nil {
		t.Fatalf("second Create: %v", err)
	}
	got, _ := e.store.Open("fresh.txt")
	if got != "existing content" {
		t.Errorf("content = %q, want existing content", got)
	}
}

func TestCreateRejectsInvalidNames(t *testing.T) {
	e := testEnv(t)
	for _, name := range []string{"", "Upper.txt", "a/b.txt", `a\b.txt`} {
		err := e.store.Create(name)
		if !errors.Is(err, apperr.ErrCreate) {
			t.Errorf("Create(%q) = %v, want apperr.ErrCreate", name, err)
		}
	}
}

func TestDeleteClearsEverything(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "doomed.txt", "x")
	_ = e.store.Edit("doomed.txt", "dirty")
	if _, err := e.store.Open("doomed.txt"); err != nil {
		t.Fatal(err)
	}

	if err := e.store.Delete("doomed.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	entries, _ := e.store.List()
	if _, ok := entryFor(entries, "doomed.txt"); ok {
		t.Error("deleted note still listed")
	}
	if e.store.Selection() != "" {
		t.Errorf("selection = %q, want none", e.store.Selection())
	}
	if _, err := e.store.Open("doomed.txt"); !errors.Is(err, apperr.ErrRead) {
		t.Errorf("Open after delete = %v, want apperr.ErrRead", err)
	}
}

func TestDeleteMissingNoteIsDeleteError(t *testing.T) {
	e := testEnv(t)
	err := e.store.Delete("nope.txt")
	if !errors.Is(err, apperr.ErrDelete) {
		t.Errorf("error = %v, want apperr.ErrDelete", err)
	}
}

func TestListSortsCaseInsensitively(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "Bravo.txt", "b")
	writeNote(t, e, "alpha.txt", "a")

	entries, err := e.store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "alpha.txt" || entries[1].Name != "Bravo.txt" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestSwitchFolderScopesDrafts(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "same.txt", "first folder")
	_ = e.store.Edit("same.txt", "draft in first")
	if _, err := e.store.Open("same.txt"); err != nil {
		t.Fatal(err)
	}

	second := t.TempDir()
	if err := os.WriteFile(filepath.Join(second, "same.txt"), []byte("second folder"), 0o644); err != nil {
		t.Fatal(err)
	}

	e.store.SwitchFolder(second)
	if e.store.Selection() != "" {
		t.Errorf("selection = %q, want cleared", e.store.Selection())
	}

	// The first folder's draft must not shadow the second folder's file.
	got, err := e.store.Open("same.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "second folder" {
		t.Errorf("content = %q, want second folder", got)
	}

	// Switching back resurfaces the original draft.
	e.store.SwitchFolder(e.folder)
	got, err = e.store.Open("same.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "draft in first" {
		t.Errorf("content = %q, want draft in first", got)
	}
}

func TestSwitchFolderPersistsPreference(t *testing.T) {
	e := testEnv(t)
	data, err := os.ReadFile(e.pref)
	if err != nil {
		t.Fatalf("preference file missing: %v", err)
	}
	if string(data) != e.folder {
		t.Errorf("preference = %q, want %q", data, e.folder)
	}
}

func TestNoFolderSelected(t *testing.T) {
	e := testEnv(t)
	s := New(mustDrafts(t, e.dbPath), prefs.New(filepath.Join(t.TempDir(), "folder")), testLogger())

	entries, err := s.List()
	if err != nil || len(entries) != 0 {
		t.Errorf("List = (%v, %v), want empty and nil", entries, err)
	}
	if _, err := s.Open("a.txt"); !errors.Is(err, apperr.ErrNoFolder) {
		t.Errorf("Open = %v, want apperr.ErrNoFolder", err)
	}
	if err := s.Edit("a.txt", "x"); !errors.Is(err, apperr.ErrNoFolder) {
		t.Errorf("Edit = %v, want apperr.ErrNoFolder", err)
	}
	if err := s.Save("a.txt", "x"); !errors.Is(err, apperr.ErrNoFolder) {
		t.Errorf("Save = %v, want apperr.ErrNoFolder", err)
	}
}

func mustDrafts(t *testing.T, path string) draft.Store {
	t.Helper()
	db, err := draft.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveFailurePreservesDraft(t *testing.T) {
	e := testEnv(t)
	writeNote(t, e, "alpha.txt", "hi")
	_ = e.store.Edit("alpha.txt", "unsaved")

	// A name the vault rejects stands in for a disk write failure.
	err := e.store.Save("bad/name.txt", "x")
	if !errors.Is(err, apperr.ErrWrite) {
		t.Fatalf("error = %v, want apperr.ErrWrite", err)
	}

	got, err := e.store.Open("alpha.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "unsaved" {
		t.Errorf("draft = %q, want unsaved", got)
	}
}
