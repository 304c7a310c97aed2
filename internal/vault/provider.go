// Package vault provides file-system access to the active notes folder.
package vault

// Provider is the interface for note file operations. Names are bare
// filenames; the notes folder is flat (no subdirectories are listed).
type Provider interface {
	// Root returns the absolute path of the notes folder.
	Root() string
	// List returns the names of all regular files directly inside the
	// folder, sorted case-insensitively. A missing folder yields an
	// empty listing, not an error.
	List() ([]string, error)
	// Read returns the raw bytes of the named note.
	Read(name string) ([]byte, error)
	// Write atomically replaces the named note's content.
	Write(name string, content []byte) error
	// Create makes an empty file for name if absent. Existing files are
	// left untouched.
	Create(name string) error
	// Delete removes the named note file.
	Delete(name string) error
	// Rename moves oldName to newName within the folder.
	Rename(oldName, newName string) error
}
