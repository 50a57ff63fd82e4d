package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/journalservice"
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/session"
	"github.com/starford/journalsync/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *journalservice.Service
	sessions *session.Registry
	events   EventPublisher
}

// NewHandler creates a new Handler.
func NewHandler(svc *journalservice.Service, sessions *session.Registry, events EventPublisher) *Handler {
	return &Handler{svc: svc, sessions: sessions, events: events}
}

func (h *Handler) publish(kind, entryID string) {
	if h.events != nil {
		h.events.PublishEntryEvent(kind, entryID, nil)
	}
}

func userParam(r *http.Request) (string, error) {
	u := r.URL.Query().Get("user_id")
	if u == "" {
		return "", fmt.Errorf("user_id is required: %w", apperr.ErrInvalidInput)
	}
	return u, nil
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List a user's entries, most recently updated first
//	@Tags			entries
//	@Produce		json
//	@Param			user_id	query		string	true	"Owner"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	EntryListResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeError(w, "list entries", err)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	entries, err := h.svc.ListEntries(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, "list entries", err)
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries})
}

// CreateEntry handles POST /api/entries.
//
//	@Summary		Start a new draft entry, optionally from a prompt
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEntryRequest	true	"Entry"
//	@Success		201		{object}	journalservice.EntryDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [post]
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create entry", err)
		return
	}
	e, err := h.svc.CreateEntry(r.Context(), req.UserID, req.Title, req.Prompt)
	if err != nil {
		writeError(w, "create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// GetEntry handles GET /api/entries/{id}.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteEntry handles DELETE /api/entries/{id}. An open session for the
// entry is closed and its running save awaited first, so no save can
// recreate records of the deleted entry.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s, ok := h.sessions.Get(id); ok {
		h.sessions.Close(id)
		s.Wait()
	}
	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		writeError(w, "delete entry", err)
		return
	}
	h.publish(sse.KindDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	tags, err := h.svc.ListTags(r.Context(), userID)
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// CreateTag handles POST /api/tags.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create tag", err)
		return
	}
	tag, err := h.svc.CreateTag(r.Context(), req.UserID, req.Name)
	if err != nil {
		writeError(w, "create tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// ListProjects handles GET /api/projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, err := userParam(r)
	if err != nil {
		writeError(w, "list projects", err)
		return
	}
	projects, err := h.svc.ListProjects(r.Context(), userID)
	if err != nil {
		writeError(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// CreateProject handles POST /api/projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create project", err)
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req.UserID, req.Name)
	if err != nil {
		writeError(w, "create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
