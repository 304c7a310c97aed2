package api

import "github.com/starford/ansuz/internal/notestore"

// NoteEntry is one row of the listing (aliased from the domain layer).
type NoteEntry = notestore.Entry

// NoteListResponse wraps the note listing.
type NoteListResponse struct {
	Notes  []NoteEntry `json:"notes"`
	Folder string      `json:"folder"`
}

// NoteResponse is returned when a note is opened.
type NoteResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Name string `json:"name"`
}

// ContentRequest is the request body for draft and save operations.
type ContentRequest struct {
	Content string `json:"content"`
}

// RenameRequest is the request body for renaming a note.
type RenameRequest struct {
	NewName string `json:"new_name"`
}

// FolderRequest is the request body for switching the active folder.
type FolderRequest struct {
	Path string `json:"path"`
}

// FolderResponse reports the active folder.
type FolderResponse struct {
	Folder string `json:"folder"`
}
