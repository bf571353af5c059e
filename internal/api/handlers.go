package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lllllan02/knowledge-base/internal/apperr"
	"github.com/lllllan02/knowledge-base/internal/backlink"
	"github.com/lllllan02/knowledge-base/internal/render"
	"github.com/lllllan02/knowledge-base/internal/scanner"
	"github.com/lllllan02/knowledge-base/internal/session"
	"github.com/lllllan02/knowledge-base/internal/store"
)

// Handler holds API route handlers. All mutations go through the session so
// the resolution cache and backlink state stay consistent.
type Handler struct {
	sess      *session.Session
	backlinks *backlink.Index
	renderer  *render.Renderer
}

// NewHandler creates a new Handler over the session.
func NewHandler(sess *session.Session) *Handler {
	return &Handler{
		sess:      sess,
		backlinks: backlink.New(sess.Store()),
		renderer:  render.New(sess.Resolver()),
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional filtering
//	@Tags			notes
//	@Produce		json
//	@Param			folder	query		string	false	"Filter by folder id ('root' for unfiled)"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			q		query		string	false	"Substring search over title, content, tags"
//	@Param			limit	query		int		false	"Max results for q searches"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()
	st := h.sess.Store()

	var (
		notes []store.Note
		err   error
	)
	switch {
	case q.Get("q") != "":
		limit, _ := strconv.Atoi(q.Get("limit"))
		notes, err = st.SearchNotes(ctx, q.Get("q"), limit)
	case q.Get("tag") != "":
		notes, err = st.QueryNotesByTag(ctx, q.Get("tag"))
	case q.Get("folder") != "":
		folder := q.Get("folder")
		var fid *string
		if folder != "root" {
			fid = &folder
		}
		notes, err = st.QueryNotesByFolder(ctx, fid)
	default:
		notes, err = st.ListAllNotes(ctx)
	}
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	store.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.sess.Store().GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	store.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.sess.CreateNote(r.Context(), req.Content, req.FolderID)
	if err != nil {
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Save note content; title and tags are re-derived
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Updated content"
//	@Success		200		{object}	store.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.sess.SaveNoteNow(r.Context(), id, req.Content); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	note, err := h.sess.Store().GetNote(r.Context(), id)
	if err != nil {
		slog.Error("reread note failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// MoveNote handles PUT /api/notes/{id}/folder.
//
//	@Summary		Move a note into a folder (null for root)
//	@Tags			notes
//	@Accept			json
//	@Param			id		path	string			true	"Note id"
//	@Param			body	body	MoveNoteRequest	true	"Destination folder"
//	@Success		204		"Note moved"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/folder [put]
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req MoveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.sess.Store().MoveNote(r.Context(), id, req.FolderID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("move note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note and its attachments
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sess.DeleteNote(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Backlinks handles GET /api/notes/{id}/backlinks.
//
//	@Summary		List notes whose wikilinks target this note's exact title
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.sess.Store().GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	bl, err := h.backlinks.FindBacklinks(r.Context(), *note)
	if err != nil {
		slog.Error("backlinks failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if bl == nil {
		bl = []store.Note{}
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{NoteID: id, Backlinks: bl})
}

// Preview handles GET /api/notes/{id}/preview.
//
//	@Summary		Render a note to HTML with live wikilink anchors
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	PreviewResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/preview [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.sess.Store().GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	html, err := h.renderer.Render(r.Context(), note.Content)
	if err != nil {
		slog.Error("preview failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{HTML: html})
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a wikilink reference to matching notes
//	@Tags			links
//	@Produce		json
//	@Param			ref	query		string	true	"Link reference"
//	@Success		200	{object}	ResolveResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'ref' is required"))
		return
	}
	notes, err := h.sess.Resolver().Resolve(r.Context(), ref)
	if err != nil {
		slog.Error("resolve failed", slog.String("ref", ref), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if notes == nil {
		notes = []store.Note{}
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Ref: ref, Notes: notes})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the knowledge graph of exact-resolved wikilinks
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	notes, err := h.sess.Store().ListAllNotes(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	// Edges require an exact title match, mirroring how backlinks count.
	byTitle := make(map[string]string, len(notes))
	for _, n := range notes {
		if _, ok := byTitle[scanner.NormalizeTitle(n.Title)]; !ok {
			byTitle[scanner.NormalizeTitle(n.Title)] = n.ID
		}
	}

	nodes := make([]GraphNode, 0, len(notes))
	links := []GraphLink{}
	for _, n := range notes {
		nodes = append(nodes, GraphNode{ID: n.ID, Title: n.Title})
		for _, ref := range scanner.Wikilinks(n.Content) {
			if target, ok := byTitle[scanner.NormalizeTitle(ref)]; ok && target != n.ID {
				links = append(links, GraphLink{Source: n.ID, Target: target})
			}
		}
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}
