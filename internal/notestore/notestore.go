// Package notestore implements the note session: the active folder, the
// current editor selection, and the dirty-tracking draft cache.
//
// A note is dirty exactly when a draft row exists for it. Edit writes
// through to the draft table on every change, Save writes the real file
// and clears the draft, so the draft table doubles as crash recovery.
package notestore

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/draft"
	"github.com/starford/ansuz/internal/prefs"
	"github.com/starford/ansuz/internal/vault"
)

// Entry is one row of the note listing.
type Entry struct {
	Name  string `json:"name"`
	Dirty bool   `json:"dirty"`
}

// Store owns the session state. All operations serialize through one
// mutex: callers may arrive from HTTP handlers, the MCP server, and the
// folder watcher at once, but each operation is a short, atomic unit of
// work against the filesystem and the draft table.
type Store struct {
	mu        sync.Mutex
	folder    string         // absolute path; "" when no folder selected
	selection string         // name of the open note; "" when none
	fs        vault.Provider // nil when no folder selected
	drafts    draft.Store
	prefs     *prefs.Store
	logger    *slog.Logger
}

// New creates a Store. The folder starts unset; call Restore to pick up
// the last-used folder preference.
func New(drafts draft.Store, pr *prefs.Store, logger *slog.Logger) *Store {
	return &Store{drafts: drafts, prefs: pr, logger: logger}
}

// ValidateName enforces the filename constraints shared by New and
// Rename: non-empty, lower-case, no path separators.
func ValidateName(name string) error {
	return validation.Validate(name,
		validation.Required.Error("filename must not be empty"),
		validation.By(func(v interface{}) error {
			s, _ := v.(string)
			if s != strings.ToLower(s) {
				return errors.New("filename must be lower-case")
			}
			if strings.ContainsAny(s, `/\`) {
				return errors.New("filename must not contain path separators")
			}
			return nil
		}),
	)
}

// Restore loads the last-used folder preference, falling back to the
// given folder when no usable preference exists. An unusable folder is
// treated as "no folder selected", never an error.
func (s *Store) Restore(fallback string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.prefs.Load()
	if !ok {
		folder = fallback
	}
	if folder == "" {
		return
	}
	fs, err := vault.NewFS(folder)
	if err != nil {
		s.logger.Warn("restore: folder not usable",
			slog.String("folder", folder), slog.String("error", err.Error()))
		return
	}
	s.folder = fs.Root()
	s.fs = fs
}

// Folder returns the active folder path, or "" when none is selected.
func (s *Store) Folder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folder
}

// Selection returns the name of the currently open note, or "".
func (s *Store) Selection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// List returns the folder's notes sorted case-insensitively, each
// annotated with its dirty flag. No folder, or a folder that vanished,
// yields an empty listing.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fs == nil {
		return nil, nil
	}
	names, err := s.fs.List()
	if err != nil {
		return nil, fmt.Errorf("list: %w: %w", apperr.ErrRead, err)
	}
	dirty, err := s.drafts.Names(s.folder)
	if err != nil {
		return nil, fmt.Errorf("list: %w: %w", apperr.ErrRead, err)
	}

	entries := make([]Entry, len(names))
	for i, name := range names {
		_, isDirty := dirty[name]
		entries[i] = Entry{Name: name, Dirty: isDirty}
	}
	return entries, nil
}

// Open returns the note's draft content if one exists, otherwise the
// authoritative on-disk content, and makes the note the current
// selection. A note with neither a file nor a draft fails with ErrRead.
func (s *Store) Open(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fs == nil {
		return "", fmt.Errorf("open %s: %w", name, apperr.ErrNoFolder)
	}
	content, ok, err := s.drafts.Get(s.folder, name)
	if err != nil {
		return "", fmt.Errorf("open %s: %w: %w", name, apperr.ErrRead, err)
	}
	if ok {
		s.selection = name
		return content, nil
	}
	data, err := s.fs.Read(name)
	if err != nil {
		return "", fmt.Errorf("open %s: %w: %w", name, apperr.ErrRead, err)
	}
	s.selection = name
	return string(data), nil
}

// Edit records newContent as the note's draft, marking it dirty. The
// draft is durable: it survives selection changes and restarts. The
// real file is untouched until Save.
func (s *Store) Edit(name, newContent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fs == nil {
		return fmt.Errorf("edit %s: %w", name, apperr.ErrNoFolder)
	}
	if err := s.drafts.Put(s.folder, name, newContent); err != nil {
		return fmt.Errorf("edit %s: %w: %w", name, apperr.ErrWrite, err)
	}
	return nil
}

// Save writes content to the real file, then clears the note's draft so
// it is no longer dirty. When the disk write fails the draft is left in
// place, so nothing is lost.
func (s *Store) Save(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fs == nil {
		return fmt.Errorf("save %s: %w", name, apperr.ErrNoFolder)
	}
	if err := s.fs.Write(name, []byte(content)); err != nil {
		return fmt.Errorf("save %s: %w: %w", name, apperr.ErrWrite, err)
	}
	if err := s.drafts.Delete(s.folder, name); err != nil {
		// The file is saved but the note still looks dirty; surface it.
		return fmt.Errorf("save %s: clear draft: %w: %w", name, apperr.ErrWrite, err)
	}
	return nil
}

// Create makes an empty file for a new note. Calling it for an existing
// note is harmless: the file is never truncated. Drafts are untouched.
func (s *Store) Create(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fs == nil {
		return fmt.Errorf("new note: %w", apperr.ErrNoFolder)
	}
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("new note %q: %w: %w", name, apperr.ErrCreate, err)
	}
	if err := s.fs.Create(name); err != nil {
		return fmt.Errorf("new note %q: %w: %w", name, apperr.ErrCreate, err)
	}
	return nil
}

// Delete removes the note's file and draft. If the note was open, the
// selection is cleared.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fs == nil {
		return fmt.Errorf("delete %s: %w", name, apperr.ErrNoFolder)
	}
	if err := s.fs.Delete(name); err != nil {
		return fmt.Errorf("delete %s: %w: %w", name, apperr.ErrDelete, err)
	}
	if err := s.drafts.Delete(s.folder, name); err != nil {
		return fmt.Errorf("delete %s: clear draft: %w: %w", name, apperr.ErrDelete, err)
	}
	if s.selection == name {
		s.selection = ""
	}
	return nil
}

// Rename moves oldName to newName, carrying any unsaved draft with it.
// newName must pass ValidateName, differ from oldName, and not collide
// case-insensitively with an existing note. An open selection follows
// the rename.
func (s *Store) Rename(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fs == nil {
		return fmt.Errorf("rename %s: %w", oldName, apperr.ErrNoFolder)
	}
	if err := ValidateName(newName); err != nil {
		return fmt.Errorf("rename to %q: %w: %w", newName, apperr.ErrRename, err)
	}
	if newName == oldName {
		return fmt.Errorf("rename %s: %w: name unchanged", oldName, apperr.ErrRename)
	}
	names, err := s.fs.List()
	if err != nil {
		return fmt.Errorf("rename %s: %w: %w", oldName, apperr.ErrRename, err)
	}
	for _, n := range names {
		if strings.EqualFold(n, newName) {
			return fmt.Errorf("rename to %q: %w: %w", newName, apperr.ErrRename, apperr.ErrExists)
		}
	}
	if err := s.fs.Rename(oldName, newName); err != nil {
		return fmt.Errorf("rename %s: %w: %w", oldName, apperr.ErrRename, err)
	}
	if err := s.drafts.Rename(s.folder, oldName, newName); err != nil {
		// The file is renamed but the draft still sits under the old
		// name; surface it rather than silently dropping the edits.
		return fmt.Errorf("rename %s: migrate draft: %w: %w", oldName, apperr.ErrRename, err)
	}
	if s.selection == oldName {
		s.selection = newName
	}
	return nil
}

// SwitchFolder makes path the active folder, persists it as the
// last-used folder, and clears the selection. Drafts are not cleared;
// they stay keyed by the folder they were edited in. An unusable path
// behaves as "no folder selected". Preference save failures are logged
// and otherwise ignored.
func (s *Store) SwitchFolder(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection = ""
	fs, err := vault.NewFS(path)
	if err != nil {
		s.logger.Warn("switch folder: not usable",
			slog.String("folder", path), slog.String("error", err.Error()))
		s.folder = path
		s.fs = nil
	} else {
		s.folder = fs.Root()
		s.fs = fs
	}

	if err := s.prefs.Save(s.folder); err != nil {
		s.logger.Warn("switch folder: preference not saved",
			slog.String("folder", s.folder), slog.String("error", err.Error()))
	}
}
