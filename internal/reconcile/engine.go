// Package reconcile brings the relational records of an entry in line with
// its document on every save: tag links, task items, media attachments and
// finally the entry's scalar columns.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/journalsync/internal/document"
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/setdiff"
	"github.com/starford/journalsync/internal/storage"
	"github.com/starford/journalsync/internal/store"
)

// SaveRequest carries the field values captured when a save fired and the
// snapshot they are compared against.
type SaveRequest struct {
	EntryID  string
	UserID   string
	Fields   models.EntryFields
	Baseline models.EntryFields
}

// Stats counts the writes one save performed.
type Stats struct {
	TagsAdded          int `json:"tags_added"`
	TagsRemoved        int `json:"tags_removed"`
	TasksUpdated       int `json:"tasks_updated"`
	TasksDeleted       int `json:"tasks_deleted"`
	TasksSkipped       int `json:"tasks_skipped"`
	AttachmentsCreated int `json:"attachments_created"`
	AttachmentsDeleted int `json:"attachments_deleted"`
}

// RecordWrites is the number of task and attachment rows written.
func (s Stats) RecordWrites() int {
	return s.TasksUpdated + s.TasksDeleted + s.AttachmentsCreated + s.AttachmentsDeleted
}

// SaveResult is returned by a successful save.
type SaveResult struct {
	// Snapshot is the new comparison baseline. Its content is what was
	// persisted, which differs from the request when the default document
	// was substituted.
	Snapshot  models.EntryFields
	Entry     *models.JournalEntry
	Stats     Stats
	Defaulted bool
}

// Engine runs the sync steps of a save against a store and a blob provider.
type Engine struct {
	store  store.Persistence
	blobs  storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source used for updated_at and completed_at.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine.
func New(p store.Persistence, blobs storage.Provider, opts ...Option) *Engine {
	e := &Engine{
		store:  p,
		blobs:  blobs,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Save reconciles and persists one entry. Tag and scalar-field failures fail
// the save; per-record task and media failures are logged and skipped.
func (e *Engine) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	log := e.logger.With(slog.String("entry_id", req.EntryID))

	doc, content, defaulted := document.ParseOrDefault(req.Fields.Content)
	if defaulted {
		log.Warn("reconcile: content unusable, saving default document", slog.Int("content_len", len(req.Fields.Content)))
	}

	var stats Stats
	if !setdiff.Equal(req.Fields.TagIDs, req.Baseline.TagIDs) {
		if err := e.syncTags(ctx, req, &stats); err != nil {
			return nil, fmt.Errorf("reconcile: sync tags: %w", err)
		}
	}

	now := e.now().UTC()
	e.syncTasks(ctx, log, req.EntryID, document.Tasks(doc), now, &stats)
	e.syncMedia(ctx, log, req, document.ImageURLs(doc), &stats)

	isDraft := false
	entry, err := e.store.UpdateEntry(ctx, req.EntryID, models.EntryPatch{
		Title:     &req.Fields.Title,
		Content:   &content,
		IsDraft:   &isDraft,
		UpdatedAt: &now,
		Mood:      req.Fields.Mood,
		ProjectID: req.Fields.ProjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile: persist entry: %w", err)
	}

	snap := req.Fields.Clone()
	snap.Content = content
	log.Debug("reconcile: saved",
		slog.Int("tasks_updated", stats.TasksUpdated),
		slog.Int("tasks_deleted", stats.TasksDeleted),
		slog.Int("attachments_created", stats.AttachmentsCreated),
		slog.Int("attachments_deleted", stats.AttachmentsDeleted),
	)
	return &SaveResult{Snapshot: snap, Entry: entry, Stats: stats, Defaulted: defaulted}, nil
}

// syncTags diffs the requested tag set against the links currently stored.
func (e *Engine) syncTags(ctx context.Context, req SaveRequest, stats *Stats) error {
	current, err := e.store.GetEntryTagIDs(ctx, req.EntryID)
	if err != nil {
		return err
	}
	add, remove := setdiff.Diff(current, req.Fields.TagIDs)
	if err := e.store.AddEntryTags(ctx, req.UserID, req.EntryID, add); err != nil {
		return err
	}
	stats.TagsAdded += len(add)
	for _, id := range remove {
		if err := e.store.RemoveEntryTag(ctx, req.EntryID, id); err != nil {
			return err
		}
		stats.TagsRemoved++
	}
	return nil
}
