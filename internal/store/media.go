package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/models"
)

const mediaColumns = `id, user_id, entry_id, file_path, file_url_cached, file_name_original, file_type, mime_type, file_size_bytes, created_at`

func scanMedia(s scanner) (*models.MediaAttachment, error) {
	var a models.MediaAttachment
	err := s.Scan(&a.ID, &a.UserID, &a.EntryID, &a.FilePath, &a.FileURLCached, &a.FileNameOriginal,
		&a.FileType, &a.MimeType, &a.FileSizeBytes, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetMediaAttachments returns the attachment rows of an entry.
func (db *DB) GetMediaAttachments(ctx context.Context, entryID string) ([]models.MediaAttachment, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT `+mediaColumns+` FROM media_attachments
		WHERE entry_id = ?
		ORDER BY created_at, id
	`), entryID)
	if err != nil {
		return nil, fmt.Errorf("store: list attachments: %w", err)
	}
	defer rows.Close()
	var out []models.MediaAttachment
	for rows.Next() {
		a, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan attachment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// CreateMediaAttachment inserts an attachment row.
func (db *DB) CreateMediaAttachment(ctx context.Context, a models.MediaAttachment) (*models.MediaAttachment, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO media_attachments (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), a.ID, a.UserID, a.EntryID, a.FilePath, a.FileURLCached, a.FileNameOriginal,
		a.FileType, a.MimeType, a.FileSizeBytes, a.CreatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: create attachment: %w", err)
	}
	row := db.conn.QueryRowContext(ctx, db.rebind(`SELECT `+mediaColumns+` FROM media_attachments WHERE id = ?`), a.ID)
	out, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: attachment %s: %w", a.ID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get attachment: %w", err)
	}
	return out, nil
}

// DeleteMediaAttachment removes an attachment row.
func (db *DB) DeleteMediaAttachment(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM media_attachments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("store: delete attachment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: attachment %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
