package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/events"
	"github.com/starford/ansuz/internal/notestore"
	"github.com/starford/ansuz/internal/watch"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker and watcher may be nil (no SSE endpoint, no watch rewiring on
// folder switches); tests use that.
func NewRouter(store *notestore.Store, authEnabled bool, token string, broker *events.Broker, watcher *watch.Watcher) chi.Router {
	h := NewHandler(store, broker, watcher)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Note listing and lifecycle.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{name}", h.OpenNote)
	r.Delete("/notes/{name}", h.DeleteNote)

	// Editing: draft write-through, explicit save, rename.
	r.Put("/notes/{name}/draft", h.EditNote)
	r.Post("/notes/{name}/save", h.SaveNote)
	r.Post("/notes/{name}/rename", h.RenameNote)

	// Active folder.
	r.Get("/folder", h.GetFolder)
	r.Put("/folder", h.SwitchFolder)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", http.HandlerFunc(broker.ServeHTTP))
	}

	return r
}
