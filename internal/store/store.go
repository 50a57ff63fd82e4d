package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/starford/journalsync/internal/models"
)

// Persistence is the subset of the store the sync engine depends on.
type Persistence interface {
	GetEntry(ctx context.Context, id string) (*models.JournalEntry, error)
	UpdateEntry(ctx context.Context, id string, patch models.EntryPatch) (*models.JournalEntry, error)

	GetTaskItems(ctx context.Context, entryID string) ([]models.TaskItem, error)
	CreateTaskItem(ctx context.Context, item models.TaskItem) (*models.TaskItem, error)
	UpdateTaskItem(ctx context.Context, id string, patch models.TaskPatch) (*models.TaskItem, error)
	DeleteTaskItem(ctx context.Context, id string) error

	GetMediaAttachments(ctx context.Context, entryID string) ([]models.MediaAttachment, error)
	CreateMediaAttachment(ctx context.Context, a models.MediaAttachment) (*models.MediaAttachment, error)
	DeleteMediaAttachment(ctx context.Context, id string) error

	GetEntryTagIDs(ctx context.Context, entryID string) ([]string, error)
	AddEntryTags(ctx context.Context, userID, entryID string, tagIDs []string) error
	RemoveEntryTag(ctx context.Context, entryID, tagID string) error
}

var _ Persistence = (*DB)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func nullable[T any](o models.Optional[T]) any {
	if !o.Valid {
		return nil
	}
	return o.Value
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
