package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/session"
)

func sessionResponse(s *session.Session, created bool) SessionResponse {
	return SessionResponse{Status: s.Status(), Fields: s.Fields(), Created: created}
}

// open returns the entry's session, opening it from the stored entry when
// none is open yet.
func (h *Handler) open(r *http.Request, id string) (*session.Session, bool, error) {
	if s, ok := h.sessions.Get(id); ok {
		return s, false, nil
	}
	detail, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		return nil, false, err
	}
	s, created := h.sessions.Open(&detail.JournalEntry, detail.TagIDs)
	return s, created, nil
}

// OpenSession handles POST /api/entries/{id}/session.
//
//	@Summary		Open an editing session for an entry
//	@Description	The stored entry becomes the session's baseline. Opening an already open entry returns the existing session.
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Entry ID"
//	@Success		200	{object}	SessionResponse
//	@Success		201	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/session [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	s, created, err := h.open(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, sessionResponse(s, created))
}

// SessionStatus handles GET /api/entries/{id}/session.
//
//	@Summary		Report dirtiness and save progress
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Entry ID"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/session [get]
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, "session status", fmt.Errorf("no open session: %w", apperr.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s, false))
}

// UpdateSession handles PATCH /api/entries/{id}/session.
//
//	@Summary		Edit session fields
//	@Description	Only fields present in the body change. A null mood or project_id clears it. The save runs after the quiet period.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Entry ID"
//	@Param			body	body		SessionUpdateRequest	true	"Field edits"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/session [patch]
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "update session", err)
		return
	}
	if req.Empty() {
		writeError(w, "update session", fmt.Errorf("no fields to update: %w", apperr.ErrInvalidInput))
		return
	}
	s, created, err := h.open(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "update session", err)
		return
	}
	s.Update(req.apply)
	writeJSON(w, http.StatusOK, sessionResponse(s, created))
}

// SaveSession handles POST /api/entries/{id}/session/save.
//
//	@Summary		Save now, skipping the quiet period
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Entry ID"
//	@Success		202	{object}	SessionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/session/save [post]
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, "save session", fmt.Errorf("no open session: %w", apperr.ErrNotFound))
		return
	}
	s.SaveNow()
	writeJSON(w, http.StatusAccepted, sessionResponse(s, false))
}

// CloseSession handles DELETE /api/entries/{id}/session.
//
//	@Summary		Close a session, dropping any pending save
//	@Tags			sessions
//	@Param			id	path	string	true	"Entry ID"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/session [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Close(chi.URLParam(r, "id")) {
		writeError(w, "close session", fmt.Errorf("no open session: %w", apperr.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
