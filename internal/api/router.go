package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lllllan02/knowledge-base/internal/session"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(sess *session.Session, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(sess)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Put("/notes/{id}/folder", h.MoveNote)

	// Link-derived views.
	r.Get("/notes/{id}/backlinks", h.Backlinks)
	r.Get("/notes/{id}/preview", h.Preview)
	r.Get("/resolve", h.Resolve)
	r.Get("/graph", h.Graph)

	// Folders.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)
	r.Put("/folders/{id}", h.RenameFolder)
	r.Put("/folders/{id}/parent", h.MoveFolder)
	r.Delete("/folders/{id}", h.DeleteFolder)

	// Attachments.
	r.Post("/notes/{id}/attachments", h.UploadAttachment)
	r.Get("/notes/{id}/attachments", h.ListAttachments)
	r.Get("/attachments/{id}", h.ServeAttachment)
	r.Delete("/attachments/{id}", h.DeleteAttachment)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
