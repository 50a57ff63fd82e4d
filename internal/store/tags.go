package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/models"
)

// GetEntryTagIDs returns the ids of the tags linked to an entry.
func (db *DB) GetEntryTagIDs(ctx context.Context, entryID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`SELECT tag_id FROM entry_tags WHERE entry_id = ? ORDER BY tag_id`), entryID)
	if err != nil {
		return nil, fmt.Errorf("store: entry tags: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AddEntryTags links tags to an entry in one transaction. Existing links are
// left as they are.
func (db *DB) AddEntryTags(ctx context.Context, userID, entryID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO entry_tags (entry_id, tag_id, user_id) VALUES (?, ?, ?)
		ON CONFLICT (entry_id, tag_id) DO NOTHING
	`))
	if err != nil {
		return fmt.Errorf("store: prepare tag link: %w", err)
	}
	defer stmt.Close()
	for _, tagID := range tagIDs {
		if _, err := stmt.ExecContext(ctx, entryID, tagID, userID); err != nil {
			return fmt.Errorf("store: link tag %s: %w", tagID, err)
		}
	}
	return tx.Commit()
}

// RemoveEntryTag unlinks one tag from an entry.
func (db *DB) RemoveEntryTag(ctx context.Context, entryID, tagID string) error {
	_, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM entry_tags WHERE entry_id = ? AND tag_id = ?`), entryID, tagID)
	if err != nil {
		return fmt.Errorf("store: unlink tag %s: %w", tagID, err)
	}
	return nil
}

// CreateTag inserts a tag; a duplicate name for the same user is
// apperr.ErrAlreadyExists.
func (db *DB) CreateTag(ctx context.Context, userID, name string) (*models.Tag, error) {
	t := models.Tag{ID: newID(), UserID: userID, Name: name, CreatedAt: now()}
	_, err := db.conn.ExecContext(ctx, db.rebind(`INSERT INTO tags (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`),
		t.ID, t.UserID, t.Name, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("store: tag %q: %w", name, apperr.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("store: create tag: %w", err)
	}
	return &t, nil
}

// ListTags returns a user's tags by name.
func (db *DB) ListTags(ctx context.Context, userID string) ([]models.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`SELECT id, user_id, name, created_at FROM tags WHERE user_id = ? ORDER BY name`), userID)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()
	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateProject inserts a project.
func (db *DB) CreateProject(ctx context.Context, userID, name string) (*models.Project, error) {
	p := models.Project{ID: newID(), UserID: userID, Name: name, CreatedAt: now()}
	_, err := db.conn.ExecContext(ctx, db.rebind(`INSERT INTO projects (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`),
		p.ID, p.UserID, p.Name, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create project: %w", err)
	}
	return &p, nil
}

// ListProjects returns a user's projects by name.
func (db *DB) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`SELECT id, user_id, name, created_at FROM projects WHERE user_id = ? ORDER BY name`), userID)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()
	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}
