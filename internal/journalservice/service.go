// Package journalservice implements the entry, task and attachment
// operations that sit outside the save cycle: creating and deleting entries,
// inserting tasks, editing tasks from outside the document, and uploading
// files.
package journalservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/document"
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/storage"
	"github.com/starford/journalsync/internal/store"
)

// EntryDetail is the full representation of an entry.
type EntryDetail struct {
	models.JournalEntry
	TagIDs   []string `json:"tag_ids"`
	Checksum string   `json:"checksum"`
}

// TaskBlock is a freshly created task item together with the block the
// client inserts into its document.
type TaskBlock struct {
	Task  *models.TaskItem `json:"task"`
	Block *document.Block  `json:"block"`
}

// TaskUpdate is an edit made to a task from outside its entry's document.
type TaskUpdate struct {
	Description *string `json:"task_description"`
	IsCompleted *bool   `json:"is_completed"`
	Priority    *int    `json:"priority"`
}

// OpenDocuments reaches the in-memory copy of an entry held by an open
// editing session. *session.Registry satisfies it.
type OpenDocuments interface {
	RewriteDocument(entryID string, fn func(document.Document) (document.Document, bool)) bool
}

// Option configures a Service.
type Option func(*Service)

// WithOpenDocuments makes task edits and deletions reach open sessions as
// well as the stored entry.
func WithOpenDocuments(o OpenDocuments) Option {
	return func(s *Service) { s.open = o }
}

// Service coordinates the store and the blob provider.
type Service struct {
	db     *store.DB
	blobs  storage.Provider
	open   OpenDocuments
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new journal service.
func NewService(db *store.DB, blobs storage.Provider, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{db: db, blobs: blobs, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for the save engine.
func (s *Service) Store() *store.DB { return s.db }

// CreateEntry starts a new draft, empty or seeded with a prompt.
func (s *Service) CreateEntry(ctx context.Context, userID, title, prompt string) (*EntryDetail, error) {
	e, err := s.db.CreateEntry(ctx, models.JournalEntry{
		UserID:    userID,
		Title:     title,
		Content:   document.FromPrompt(prompt),
		Mood:      models.Null[models.Mood](),
		ProjectID: models.Null[string](),
		IsDraft:   true,
	})
	if err != nil {
		return nil, err
	}
	return &EntryDetail{JournalEntry: *e, TagIDs: []string{}, Checksum: document.Checksum(e.Content)}, nil
}

// GetEntry returns an entry with its tag links.
func (s *Service) GetEntry(ctx context.Context, id string) (*EntryDetail, error) {
	e, err := s.db.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := s.db.GetEntryTagIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &EntryDetail{JournalEntry: *e, TagIDs: tags, Checksum: document.Checksum(e.Content)}, nil
}

// ListEntries returns a page of a user's entries.
func (s *Service) ListEntries(ctx context.Context, userID string, limit, offset int) ([]models.JournalEntry, error) {
	return s.db.ListEntries(ctx, userID, limit, offset)
}

// DeleteEntry removes an entry, its records, and its stored files.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	media, err := s.db.GetMediaAttachments(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteEntry(ctx, id); err != nil {
		return err
	}
	var paths []string
	for _, a := range media {
		if a.FilePath != "" {
			paths = append(paths, a.FilePath)
		}
	}
	if len(paths) > 0 {
		if err := s.blobs.Delete(ctx, paths); err != nil {
			s.logger.Warn("journal: delete entry files failed", slog.String("entry_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

// InsertTask creates an empty task item for an entry. The returned block is
// what the client places in the document; the next save links them.
func (s *Service) InsertTask(ctx context.Context, entryID string) (*TaskBlock, error) {
	e, err := s.db.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	t, err := s.db.CreateTaskItem(ctx, models.TaskItem{UserID: e.UserID, EntryID: e.ID})
	if err != nil {
		return nil, err
	}
	return &TaskBlock{Task: t, Block: document.NewTaskBlock(t.ID)}, nil
}

// ListTasks returns the task items of an entry.
func (s *Service) ListTasks(ctx context.Context, entryID string) ([]models.TaskItem, error) {
	if _, err := s.db.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}
	return s.db.GetTaskItems(ctx, entryID)
}

// ListAttachments returns the attachment rows of an entry.
func (s *Service) ListAttachments(ctx context.Context, entryID string) ([]models.MediaAttachment, error) {
	if _, err := s.db.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}
	return s.db.GetMediaAttachments(ctx, entryID)
}

// UpdateTask edits a task row and writes the new state back into the task
// block of its entry. A failure to rewrite the document is logged; the row
// update stands.
func (s *Service) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*models.TaskItem, error) {
	cur, err := s.db.GetTaskItem(ctx, id)
	if err != nil {
		return nil, err
	}
	patch := models.TaskPatch{Description: upd.Description, Priority: upd.Priority}
	if upd.IsCompleted != nil && *upd.IsCompleted != cur.IsCompleted {
		patch.IsCompleted = upd.IsCompleted
		if *upd.IsCompleted {
			patch.CompletedAt = models.Some(s.now().UTC())
		} else {
			patch.CompletedAt = models.Null[time.Time]()
		}
	}
	t, err := s.db.UpdateTaskItem(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	err = s.rewriteEntry(ctx, t.EntryID, func(doc document.Document) (document.Document, bool) {
		desc := t.Description
		return doc, document.ApplyTaskState(doc, t.ID, document.TaskState{
			Checked:     t.IsCompleted,
			Priority:    t.Priority,
			Description: &desc,
		})
	})
	if err != nil {
		s.logger.Error("journal: sync task into entry failed", slog.String("task_id", id), slog.String("error", err.Error()))
	}
	return t, nil
}

// DeleteTask removes a task row and its block.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	t, err := s.db.GetTaskItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteTaskItem(ctx, id); err != nil {
		return err
	}
	err = s.rewriteEntry(ctx, t.EntryID, func(doc document.Document) (document.Document, bool) {
		return document.RemoveTask(doc, t.ID)
	})
	if err != nil {
		s.logger.Error("journal: remove task from entry failed", slog.String("task_id", id), slog.String("error", err.Error()))
	}
	return nil
}

// rewriteEntry applies fn to the stored document of an entry and to the copy
// held by its open session, if any.
func (s *Service) rewriteEntry(ctx context.Context, entryID string, fn func(document.Document) (document.Document, bool)) error {
	if err := s.rewriteStored(ctx, entryID, fn); err != nil {
		return err
	}
	if s.open != nil && s.open.RewriteDocument(entryID, fn) {
		s.logger.Debug("journal: open session updated", slog.String("entry_id", entryID))
	}
	return nil
}

func (s *Service) rewriteStored(ctx context.Context, entryID string, fn func(document.Document) (document.Document, bool)) error {
	e, err := s.db.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	doc, err := document.Parse(e.Content)
	if err != nil {
		return fmt.Errorf("journal: parse entry %s: %w", entryID, err)
	}
	doc, changed := fn(doc)
	if !changed {
		return nil
	}
	content, err := document.Serialize(doc)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	_, err = s.db.UpdateEntry(ctx, entryID, models.EntryPatch{Content: &content, UpdatedAt: &now})
	return err
}

// AttachFile stores an uploaded file under <user>/<entry>/<uuid>.<ext> and
// returns its public URL. No attachment row is written here: the next save
// records the image once it appears in the document.
func (s *Service) AttachFile(ctx context.Context, entryID, filename string, r io.Reader, size int64) (string, error) {
	e, err := s.db.GetEntry(ctx, entryID)
	if err != nil {
		return "", err
	}
	ext := storage.Ext(filename)
	if ext == "" {
		return "", fmt.Errorf("journal: file %q has no extension: %w", filename, apperr.ErrInvalidInput)
	}
	objectPath := fmt.Sprintf("%s/%s/%s.%s", e.UserID, e.ID, uuid.NewString(), ext)
	stored, err := s.blobs.Upload(ctx, objectPath, r, size, storage.MimeType(filename))
	if err != nil {
		return "", fmt.Errorf("journal: upload: %w", err)
	}
	url, ok := s.blobs.PublicURL(stored)
	if !ok {
		return "", errors.New("journal: storage has no public URL")
	}
	s.logger.Info("journal: file uploaded", slog.String("entry_id", e.ID), slog.String("path", stored))
	return url, nil
}

// CreateTag adds a tag for a user.
func (s *Service) CreateTag(ctx context.Context, userID, name string) (*models.Tag, error) {
	return s.db.CreateTag(ctx, userID, name)
}

// ListTags lists a user's tags.
func (s *Service) ListTags(ctx context.Context, userID string) ([]models.Tag, error) {
	return s.db.ListTags(ctx, userID)
}

// CreateProject adds a project for a user.
func (s *Service) CreateProject(ctx context.Context, userID, name string) (*models.Project, error) {
	return s.db.CreateProject(ctx, userID, name)
}

// ListProjects lists a user's projects.
func (s *Service) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.db.ListProjects(ctx, userID)
}
