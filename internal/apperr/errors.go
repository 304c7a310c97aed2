// Package apperr defines the error taxonomy shared by every store
// operation. Callers match these sentinels with errors.Is to map a
// failure onto a user-visible outcome; nothing retries.
package apperr

import "errors"

var (
	// ErrRead means a note could not be loaded: the file is missing
	// and no draft exists for it.
	ErrRead = errors.New("read failed")
	// ErrWrite means persisting content (file or draft row) failed.
	ErrWrite = errors.New("write failed")
	// ErrCreate means a new note could not be created.
	ErrCreate = errors.New("create failed")
	// ErrDelete means a note file could not be removed.
	ErrDelete = errors.New("delete failed")
	// ErrRename means a rename was invalid or the filesystem refused it.
	ErrRename = errors.New("rename failed")
	// ErrExists marks name collisions; wrapped together with the
	// operation sentinel (ErrCreate or ErrRename).
	ErrExists = errors.New("already exists")
	// ErrConfig means loading or saving a preference failed. Non-fatal:
	// callers log it and carry on.
	ErrConfig = errors.New("config failed")
	// ErrNoFolder means an operation needs an active notes folder and
	// none is selected.
	ErrNoFolder = errors.New("no folder selected")
)
