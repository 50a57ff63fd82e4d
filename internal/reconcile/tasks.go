package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/journalsync/internal/document"
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/setdiff"
)

// syncTasks updates task items whose block differs and deletes items with no
// block left. Task items are never created here.
func (e *Engine) syncTasks(ctx context.Context, log *slog.Logger, entryID string, refs []document.TaskRef, now time.Time, stats *Stats) {
	existing, err := e.store.GetTaskItems(ctx, entryID)
	if err != nil {
		log.Error("reconcile: list tasks failed, skipping task sync", slog.String("error", err.Error()))
		return
	}
	byID := make(map[string]models.TaskItem, len(existing))
	storedIDs := make([]string, 0, len(existing))
	for _, t := range existing {
		byID[t.ID] = t
		storedIDs = append(storedIDs, t.ID)
	}

	docIDs := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.ID == "" {
			stats.TasksSkipped++
			log.Debug("reconcile: task block without id skipped")
			continue
		}
		docIDs = append(docIDs, ref.ID)
		row, ok := byID[ref.ID]
		if !ok {
			stats.TasksSkipped++
			log.Warn("reconcile: task block references unknown task item, skipping", slog.String("task_id", ref.ID))
			continue
		}
		patch := taskPatch(row, ref, now)
		if patch.Empty() {
			continue
		}
		if _, err := e.store.UpdateTaskItem(ctx, ref.ID, patch); err != nil {
			log.Error("reconcile: update task failed", slog.String("task_id", ref.ID), slog.String("error", err.Error()))
			continue
		}
		stats.TasksUpdated++
	}

	_, stale := setdiff.Diff(storedIDs, docIDs)
	for _, id := range stale {
		if err := e.store.DeleteTaskItem(ctx, id); err != nil {
			log.Error("reconcile: delete task failed", slog.String("task_id", id), slog.String("error", err.Error()))
			continue
		}
		stats.TasksDeleted++
	}
}

// taskPatch holds only the fields where the block and the row disagree.
// completed_at is stamped when the item becomes complete and cleared when it
// is reopened.
func taskPatch(row models.TaskItem, ref document.TaskRef, now time.Time) models.TaskPatch {
	var p models.TaskPatch
	if row.Description != ref.Text {
		text := ref.Text
		p.Description = &text
	}
	if row.IsCompleted != ref.Checked {
		checked := ref.Checked
		p.IsCompleted = &checked
		if checked {
			p.CompletedAt = models.Some(now)
		} else {
			p.CompletedAt = models.Null[time.Time]()
		}
	}
	if row.Priority != ref.Priority {
		priority := ref.Priority
		p.Priority = &priority
	}
	return p
}
