package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lllllan02/knowledge-base/internal/apperr"
	"github.com/lllllan02/knowledge-base/internal/store"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadAttachment handles POST /api/notes/{id}/attachments
// (multipart/form-data, field "file"). The blob is stored alongside the note
// and deleted with it.
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}

	id, err := h.sess.Store().CreateAttachment(r.Context(), noteID, header.Filename, mime, data)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		} else {
			slog.Error("upload attachment failed",
				slog.String("note_id", noteID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		ID:   id,
		Name: header.Filename,
		Size: int64(len(data)),
		URL:  "/api/attachments/" + id,
	})
}

// ListAttachments handles GET /api/notes/{id}/attachments. Blob data is
// omitted; clients fetch bytes per attachment.
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "id")
	atts, err := h.sess.Store().ListAttachmentsByNote(r.Context(), noteID)
	if err != nil {
		slog.Error("list attachments failed",
			slog.String("note_id", noteID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if atts == nil {
		atts = []store.Attachment{}
	}
	writeJSON(w, http.StatusOK, atts)
}

// ServeAttachment handles GET /api/attachments/{id}, streaming the blob with
// its stored content type.
func (h *Handler) ServeAttachment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	att, err := h.sess.Store().GetAttachment(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get attachment failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("Content-Type", att.Mime)
	w.Header().Set("Content-Disposition", `inline; filename="`+att.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(att.Data)
}

// DeleteAttachment handles DELETE /api/attachments/{id}.
func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sess.Store().DeleteAttachment(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete attachment failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
