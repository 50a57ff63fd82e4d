package models

import "time"

// TaskItem is the persisted row behind a task block in an entry document.
type TaskItem struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	EntryID     string     `json:"entry_id"`
	Description string     `json:"task_description"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Priority    int        `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TaskPatch is a partial update of a task item.
type TaskPatch struct {
	Description *string
	IsCompleted *bool
	CompletedAt Optional[time.Time]
	Priority    *int
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Description == nil && p.IsCompleted == nil && !p.CompletedAt.Set && p.Priority == nil
}

// UnknownFileSize marks an attachment whose size could not be determined.
const UnknownFileSize int64 = -1

// FileTypeImage is the only attachment kind created by reconciliation.
const FileTypeImage = "image"

// MediaAttachment records a stored file referenced by an entry document.
type MediaAttachment struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	EntryID          string    `json:"entry_id"`
	FilePath         string    `json:"file_path"`
	FileURLCached    string    `json:"file_url_cached"`
	FileNameOriginal string    `json:"file_name_original"`
	FileType         string    `json:"file_type"`
	MimeType         string    `json:"mime_type"`
	FileSizeBytes    int64     `json:"file_size_bytes"`
	CreatedAt        time.Time `json:"created_at"`
}
