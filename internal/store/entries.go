package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/models"
)

const entryColumns = `id, user_id, title, content, manual_mood_label, project_id, is_draft, created_at, updated_at`

func scanEntry(s scanner) (*models.JournalEntry, error) {
	var (
		e       models.JournalEntry
		mood    sql.NullString
		project sql.NullString
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &mood, &project, &e.IsDraft, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Mood = models.Null[models.Mood]()
	if mood.Valid {
		e.Mood = models.Some(models.Mood(mood.String))
	}
	e.ProjectID = models.Null[string]()
	if project.Valid {
		e.ProjectID = models.Some(project.String)
	}
	return &e, nil
}

// CreateEntry inserts a new entry. ID and timestamps are filled in when empty.
func (db *DB) CreateEntry(ctx context.Context, e models.JournalEntry) (*models.JournalEntry, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO journal_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), e.ID, e.UserID, e.Title, e.Content, nullable(e.Mood), nullable(e.ProjectID), e.IsDraft, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: create entry: %w", err)
	}
	return db.GetEntry(ctx, e.ID)
}

// GetEntry returns one entry or apperr.ErrNotFound.
func (db *DB) GetEntry(ctx context.Context, id string) (*models.JournalEntry, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`SELECT `+entryColumns+` FROM journal_entries WHERE id = ?`), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: entry %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get entry: %w", err)
	}
	return e, nil
}

// ListEntries returns a user's entries, most recently updated first.
func (db *DB) ListEntries(ctx context.Context, userID string, limit, offset int) ([]models.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT `+entryColumns+` FROM journal_entries
		WHERE user_id = ?
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`), userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list entries: %w", err)
	}
	defer rows.Close()
	var out []models.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// UpdateEntry applies the set fields of patch and returns the stored row.
func (db *DB) UpdateEntry(ctx context.Context, id string, patch models.EntryPatch) (*models.JournalEntry, error) {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.IsDraft != nil {
		sets = append(sets, "is_draft = ?")
		args = append(args, *patch.IsDraft)
	}
	if patch.UpdatedAt != nil {
		sets = append(sets, "updated_at = ?")
		args = append(args, patch.UpdatedAt.UTC())
	}
	if patch.Mood.Set {
		sets = append(sets, "manual_mood_label = ?")
		args = append(args, nullable(patch.Mood))
	}
	if patch.ProjectID.Set {
		sets = append(sets, "project_id = ?")
		args = append(args, nullable(patch.ProjectID))
	}
	if len(sets) == 0 {
		return db.GetEntry(ctx, id)
	}

	args = append(args, id)
	res, err := db.conn.ExecContext(ctx, db.rebind(`UPDATE journal_entries SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("store: update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("store: entry %s: %w", id, apperr.ErrNotFound)
	}
	return db.GetEntry(ctx, id)
}

// DeleteEntry removes an entry together with its tasks, attachment rows and
// tag links. Stored files are the caller's concern.
func (db *DB) DeleteEntry(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, q := range []string{
		`DELETE FROM todo_items WHERE entry_id = ?`,
		`DELETE FROM media_attachments WHERE entry_id = ?`,
		`DELETE FROM entry_tags WHERE entry_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, db.rebind(q), id); err != nil {
			return fmt.Errorf("store: delete entry children: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM journal_entries WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("store: delete entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: entry %s: %w", id, apperr.ErrNotFound)
	}
	return tx.Commit()
}
