package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/journalsync/internal/journalservice"
	"github.com/starford/journalsync/internal/session"
)

// EventPublisher receives entry-level events outside the save cycle.
type EventPublisher interface {
	PublishEntryEvent(kind, entryID string, data any)
}

// Deps are the collaborators the API is built on.
type Deps struct {
	Service     *journalservice.Service
	Sessions    *session.Registry
	Events      EventPublisher // optional
	SSE         http.Handler   // optional, mounted at GET /events
	AuthEnabled bool
	Token       string
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Service, d.Sessions, d.Events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(d.AuthEnabled, d.Token))

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", h.ListEntries)
		r.Post("/", h.CreateEntry)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEntry)
			r.Delete("/", h.DeleteEntry)

			r.Post("/session", h.OpenSession)
			r.Get("/session", h.SessionStatus)
			r.Patch("/session", h.UpdateSession)
			r.Post("/session/save", h.SaveSession)
			r.Delete("/session", h.CloseSession)

			r.Get("/tasks", h.ListTasks)
			r.Post("/tasks", h.InsertTask)
			r.Get("/attachments", h.ListAttachments)
			r.Post("/attachments", h.UploadAttachment)
		})
	})

	r.Patch("/tasks/{id}", h.UpdateTask)
	r.Delete("/tasks/{id}", h.DeleteTask)

	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTag)
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)

	// SSE endpoint (protected by same auth middleware).
	if d.SSE != nil {
		r.Get("/events", d.SSE.ServeHTTP)
	}

	return r
}
