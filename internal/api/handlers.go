package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/events"
	"github.com/starford/ansuz/internal/notestore"
	"github.com/starford/ansuz/internal/watch"
)

// Handler holds API route handlers.
type Handler struct {
	store   *notestore.Store
	broker  *events.Broker
	watcher *watch.Watcher
}

// NewHandler creates a new Handler. broker and watcher may be nil.
func NewHandler(store *notestore.Store, broker *events.Broker, watcher *watch.Watcher) *Handler {
	return &Handler{store: store, broker: broker, watcher: watcher}
}

// noteName extracts the filename from the URL, supporting encoded names.
func noteName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// errStatus maps a store error onto an HTTP status and a user-facing
// message, per the error taxonomy.
func errStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrNoFolder):
		return http.StatusBadRequest, "no folder selected"
	case errors.Is(err, apperr.ErrExists):
		return http.StatusConflict, "a file with that name already exists"
	case errors.Is(err, apperr.ErrRead):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrDelete):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrCreate), errors.Is(err, apperr.ErrRename):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List()
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if entries == nil {
		entries = []NoteEntry{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: entries, Folder: h.store.Folder()})
}

// OpenNote handles GET /api/notes/{name}: draft content when dirty,
// on-disk content otherwise. Makes the note the current selection.
func (h *Handler) OpenNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	content, err := h.store.Open(name)
	if err != nil {
		status, msg := errStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("open note failed", slog.String("name", name), slog.String("error", err.Error()))
		}
		writeJSON(w, status, errorBody(msg))
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Name: name, Content: content})
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.store.Create(req.Name); err != nil {
		status, msg := errStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("create note failed", slog.String("name", req.Name), slog.String("error", err.Error()))
		}
		writeJSON(w, status, errorBody(msg))
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// EditNote handles PUT /api/notes/{name}/draft: the write-through draft
// update fired on every content mutation. The file on disk stays
// untouched; the note becomes dirty.
func (h *Handler) EditNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	name := noteName(r)
	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.store.Edit(name, req.Content); err != nil {
		status, msg := errStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("edit note failed", slog.String("name", name), slog.String("error", err.Error()))
		}
		writeJSON(w, status, errorBody(msg))
		return
	}
	// Draft changes are invisible to the folder watcher, so the dirty
	// delta is announced here.
	if h.broker != nil {
		h.broker.PublishNoteEvent("updated", name)
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveNote handles POST /api/notes/{name}/save: writes the real file
// and clears the draft.
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	name := noteName(r)
	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.store.Save(name, req.Content); err != nil {
		status, msg := errStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("save note failed", slog.String("name", name), slog.String("error", err.Error()))
		}
		writeJSON(w, status, errorBody(msg))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameNote handles POST /api/notes/{name}/rename.
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	name := noteName(r)
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.store.Rename(name, req.NewName); err != nil {
		status, msg := errStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("rename note failed", slog.String("name", name), slog.String("error", err.Error()))
		}
		writeJSON(w, status, errorBody(msg))
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Name: req.NewName})
}

// DeleteNote handles DELETE /api/notes/{name}. Confirmation is the UI's
// concern; the API deletes unconditionally.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	if err := h.store.Delete(name); err != nil {
		status, msg := errStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("delete note failed", slog.String("name", name), slog.String("error", err.Error()))
		}
		writeJSON(w, status, errorBody(msg))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFolder handles GET /api/folder.
func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FolderResponse{Folder: h.store.Folder()})
}

// SwitchFolder handles PUT /api/folder: switches the active folder,
// persists the preference, repoints the watcher, and notifies clients.
func (h *Handler) SwitchFolder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req FolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	h.store.SwitchFolder(req.Path)
	folder := h.store.Folder()
	if h.watcher != nil {
		h.watcher.SetRoot(folder)
	}
	if h.broker != nil {
		h.broker.PublishFolderChanged(folder)
	}
	writeJSON(w, http.StatusOK, FolderResponse{Folder: folder})
}
