package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/models"
)

// InsertTask handles POST /api/entries/{id}/tasks.
//
//	@Summary		Create a task and return the block to insert
//	@Description	The task row exists before the block reaches the document, so the next save updates rather than creates it.
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path		string	true	"Entry ID"
//	@Success		201	{object}	journalservice.TaskBlock
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id}/tasks [post]
func (h *Handler) InsertTask(w http.ResponseWriter, r *http.Request) {
	tb, err := h.svc.InsertTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "insert task", err)
		return
	}
	writeJSON(w, http.StatusCreated, tb)
}

// ListTasks handles GET /api/entries/{id}/tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.ListTasks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []models.TaskItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// UpdateTask handles PATCH /api/tasks/{id}.
//
//	@Summary		Edit a task outside its document
//	@Description	The change is written to the task row and mirrored into the entry's stored document.
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Task ID"
//	@Param			body	body		TaskUpdateRequest	true	"Task edits"
//	@Success		200		{object}	models.TaskItem
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id} [patch]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "update task", err)
		return
	}
	if req.Description == nil && req.IsCompleted == nil && req.Priority == nil {
		writeError(w, "update task", fmt.Errorf("no fields to update: %w", apperr.ErrInvalidInput))
		return
	}
	t, err := h.svc.UpdateTask(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
