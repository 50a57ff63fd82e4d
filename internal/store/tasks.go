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

const taskColumns = `id, user_id, entry_id, task_description, is_completed, completed_at, priority, created_at`

func scanTask(s scanner) (*models.TaskItem, error) {
	var (
		t           models.TaskItem
		completedAt sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.EntryID, &t.Description, &t.IsCompleted, &completedAt, &t.Priority, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.CompletedAt = timePtr(completedAt)
	return &t, nil
}

// GetTaskItem returns one task item or apperr.ErrNotFound.
func (db *DB) GetTaskItem(ctx context.Context, id string) (*models.TaskItem, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`SELECT `+taskColumns+` FROM todo_items WHERE id = ?`), id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: task %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get task: %w", err)
	}
	return t, nil
}

// GetTaskItems returns the task items of an entry in creation order.
func (db *DB) GetTaskItems(ctx context.Context, entryID string) ([]models.TaskItem, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT `+taskColumns+` FROM todo_items
		WHERE entry_id = ?
		ORDER BY created_at, id
	`), entryID)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()
	var out []models.TaskItem
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CreateTaskItem inserts a task item, assigning an id when empty.
func (db *DB) CreateTaskItem(ctx context.Context, item models.TaskItem) (*models.TaskItem, error) {
	if item.ID == "" {
		item.ID = newID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now()
	}
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO todo_items (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), item.ID, item.UserID, item.EntryID, item.Description, item.IsCompleted, nullTime(item.CompletedAt), item.Priority, item.CreatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: create task: %w", err)
	}
	return db.GetTaskItem(ctx, item.ID)
}

// UpdateTaskItem applies the set fields of patch.
func (db *DB) UpdateTaskItem(ctx context.Context, id string, patch models.TaskPatch) (*models.TaskItem, error) {
	var (
		sets []string
		args []any
	)
	if patch.Description != nil {
		sets = append(sets, "task_description = ?")
		args = append(args, *patch.Description)
	}
	if patch.IsCompleted != nil {
		sets = append(sets, "is_completed = ?")
		args = append(args, *patch.IsCompleted)
	}
	if patch.CompletedAt.Set {
		sets = append(sets, "completed_at = ?")
		args = append(args, nullTime(patch.CompletedAt.Ptr()))
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if len(sets) == 0 {
		return db.GetTaskItem(ctx, id)
	}

	args = append(args, id)
	res, err := db.conn.ExecContext(ctx, db.rebind(`UPDATE todo_items SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("store: update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("store: task %s: %w", id, apperr.ErrNotFound)
	}
	return db.GetTaskItem(ctx, id)
}

// DeleteTaskItem removes a task item.
func (db *DB) DeleteTaskItem(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM todo_items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("store: delete task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: task %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
