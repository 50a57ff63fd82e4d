package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/journalsync/internal/models"
)

const maxUploadBytes = 50 << 20 // 50 MB

// ListAttachments handles GET /api/entries/{id}/attachments.
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListAttachments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "list attachments", err)
		return
	}
	if items == nil {
		items = []models.MediaAttachment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": items})
}

// UploadAttachment handles POST /api/entries/{id}/attachments
// (multipart/form-data, field "file").
//
//	@Summary		Upload a file for an entry
//	@Description	Returns the public URL to place in an image block. The attachment record is written by the next save that sees the URL in the document.
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Entry ID"
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/attachments [post]
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
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

	url, err := h.svc.AttachFile(r.Context(), chi.URLParam(r, "id"), header.Filename, file, header.Size)
	if err != nil {
		writeError(w, "upload attachment", err)
		return
	}
	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{URL: url, Size: header.Size})
}
