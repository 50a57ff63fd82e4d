// Package session hosts editing sessions: per-entry dirty tracking, a
// debounced save scheduler and a registry of open sessions.
package session

import (
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/setdiff"
)

// IsDirty reports whether cur differs from the last saved snapshot. Titles
// and content compare as exact strings, tags as sets, and mood and project
// as values where unset and null are the same.
func IsDirty(cur, snap models.EntryFields) bool {
	return cur.Title != snap.Title ||
		cur.Content != snap.Content ||
		!setdiff.Equal(cur.TagIDs, snap.TagIDs) ||
		!models.SameValue(cur.Mood, snap.Mood) ||
		!models.SameValue(cur.ProjectID, snap.ProjectID)
}

// Tracker remembers the last dirtiness verdict so transitions can be
// reported once.
type Tracker struct {
	dirty bool
}

// Observe recomputes dirtiness. became is true only on a clean → dirty edge.
func (t *Tracker) Observe(cur, snap models.EntryFields) (dirty, became bool) {
	was := t.dirty
	t.dirty = IsDirty(cur, snap)
	return t.dirty, t.dirty && !was
}

// MarkDirty forces the dirty state, e.g. after a failed save.
func (t *Tracker) MarkDirty() {
	t.dirty = true
}

// Dirty returns the last verdict.
func (t *Tracker) Dirty() bool {
	return t.dirty
}
