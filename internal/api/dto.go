package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/journalsync/internal/journalservice"
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/session"
)

// CreateEntryRequest is the request body for creating an entry.
type CreateEntryRequest struct {
	UserID string `json:"user_id" example:"u1" validate:"required"`
	Title  string `json:"title" example:"Monday"`
	Prompt string `json:"prompt" example:"What are you grateful for?"`
}

// Validate implements validation.Validatable.
func (r CreateEntryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Title, validation.Length(0, 500)),
	)
}

// SessionUpdateRequest carries field edits for an open session. Omitted
// fields are left alone; an explicit null mood or project clears it.
type SessionUpdateRequest struct {
	Title     *string                      `json:"title"`
	Content   *string                      `json:"content"`
	TagIDs    *[]string                    `json:"tag_ids"`
	Mood      models.Optional[models.Mood] `json:"mood"`
	ProjectID models.Optional[string]      `json:"project_id"`
}

// Validate implements validation.Validatable.
func (r SessionUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mood, validation.By(func(any) error {
			if m, ok := r.Mood.Get(); ok && !m.Valid() {
				return errors.New("unknown mood")
			}
			return nil
		})),
		validation.Field(&r.ProjectID, validation.By(func(any) error {
			if p, ok := r.ProjectID.Get(); ok && p == "" {
				return errors.New("use null to unassign")
			}
			return nil
		})),
	)
}

// Empty reports whether the request changes nothing.
func (r SessionUpdateRequest) Empty() bool {
	return r.Title == nil && r.Content == nil && r.TagIDs == nil && !r.Mood.Set && !r.ProjectID.Set
}

// apply copies the present fields onto f.
func (r SessionUpdateRequest) apply(f *models.EntryFields) {
	if r.Title != nil {
		f.Title = *r.Title
	}
	if r.Content != nil {
		f.Content = *r.Content
	}
	if r.TagIDs != nil {
		f.TagIDs = append([]string(nil), (*r.TagIDs)...)
	}
	if r.Mood.Set {
		f.Mood = r.Mood
	}
	if r.ProjectID.Set {
		f.ProjectID = r.ProjectID
	}
}

// TaskUpdateRequest is the request body for editing a task.
type TaskUpdateRequest = journalservice.TaskUpdate

// NameRequest creates a tag or project.
type NameRequest struct {
	UserID string `json:"user_id" example:"u1" validate:"required"`
	Name   string `json:"name" example:"work" validate:"required"`
}

// Validate implements validation.Validatable.
func (r NameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
	)
}

// EntryListResponse wraps a page of entries.
type EntryListResponse struct {
	Entries []models.JournalEntry `json:"entries" validate:"required"`
}

// SessionResponse is returned by session endpoints.
type SessionResponse struct {
	Status  session.Status     `json:"status"`
	Fields  models.EntryFields `json:"fields"`
	Created bool               `json:"created,omitempty"`
}

// AttachmentUploadResponse is returned after a successful upload.
type AttachmentUploadResponse struct {
	URL  string `json:"url" example:"https://cdn.example/media-attachments/u1/e1/2c6f.png" validate:"required"`
	Size int64  `json:"size" example:"12345"`
}
