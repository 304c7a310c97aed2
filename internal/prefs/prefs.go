// Package prefs persists the single user preference: the last-opened
// notes folder. The value lives in a plain text file under the user
// config directory and is read once at startup.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

// Store reads and writes the last-folder preference file.
type Store struct {
	path string
}

// New creates a Store backed by the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the conventional preference file location,
// <user config dir>/ansuz/folder.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: user config dir: %w", apperr.ErrConfig, err)
	}
	return filepath.Join(base, "ansuz", "folder"), nil
}

// Load returns the saved folder path. The second return value is false
// when no usable preference exists: the file is missing, unreadable, or
// names something that is not a directory. None of those are errors.
func (s *Store) Load() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	folder := strings.TrimSpace(string(data))
	if folder == "" {
		return "", false
	}
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return folder, true
}

// Save writes the folder path as the new preference, creating the
// parent directory if needed.
func (s *Store) Save(folder string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %w", apperr.ErrConfig, err)
	}
	if err := os.WriteFile(s.path, []byte(folder), 0o644); err != nil {
		return fmt.Errorf("%w: save folder: %w", apperr.ErrConfig, err)
	}
	return nil
}
