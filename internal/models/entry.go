// Package models defines the domain types for journalsync.
package models

import (
	"slices"
	"time"
)

// Mood is the manual mood label attached to an entry.
type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodSad      Mood = "sad"
	MoodNeutral  Mood = "neutral"
	MoodExcited  Mood = "excited"
	MoodAnxious  Mood = "anxious"
	MoodAngry    Mood = "angry"
	MoodCalm     Mood = "calm"
	MoodGrateful Mood = "grateful"
)

// Moods lists every accepted mood label.
var Moods = []Mood{
	MoodHappy, MoodSad, MoodNeutral, MoodExcited,
	MoodAnxious, MoodAngry, MoodCalm, MoodGrateful,
}

// Valid reports whether m is one of Moods.
func (m Mood) Valid() bool {
	return slices.Contains(Moods, m)
}

// JournalEntry is a single journal document with its scalar metadata.
type JournalEntry struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Mood      Optional[Mood]   `json:"manual_mood_label"`
	ProjectID Optional[string] `json:"project_id"`
	IsDraft   bool             `json:"is_draft"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// EntryPatch is a partial update of an entry. Nil pointers and unset
// optionals leave the column untouched; an explicit null clears it.
type EntryPatch struct {
	Title     *string
	Content   *string
	IsDraft   *bool
	UpdatedAt *time.Time
	Mood      Optional[Mood]
	ProjectID Optional[string]
}

// EntryFields is the editable surface of an entry as held by an editing
// session. The last persisted EntryFields of a session is its snapshot.
type EntryFields struct {
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	TagIDs    []string         `json:"tag_ids"`
	Mood      Optional[Mood]   `json:"mood"`
	ProjectID Optional[string] `json:"project_id"`
}

// Clone returns a copy that shares no slices with f.
func (f EntryFields) Clone() EntryFields {
	f.TagIDs = slices.Clone(f.TagIDs)
	return f
}

// FieldsOf builds the editable fields of e with the given tag links.
func FieldsOf(e *JournalEntry, tagIDs []string) EntryFields {
	return EntryFields{
		Title:     e.Title,
		Content:   e.Content,
		TagIDs:    slices.Clone(tagIDs),
		Mood:      e.Mood,
		ProjectID: e.ProjectID,
	}
}

// Tag is a user-defined label linked to entries.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Project groups entries. Entries reference projects by id only.
type Project struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
