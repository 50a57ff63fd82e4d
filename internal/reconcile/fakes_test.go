package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/storage"
)

// memStore is an in-memory store.Persistence that records every write.
type memStore struct {
	mu          sync.Mutex
	entries     map[string]*models.JournalEntry
	tasks       map[string]models.TaskItem
	media       map[string]models.MediaAttachment
	tags        map[string][]string
	taskUpdates []models.TaskPatch
	taskDeletes []string
	nextID      int

	failUpdateEntry error
	failTagLookup   error
	failTaskUpdate  map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		entries:        map[string]*models.JournalEntry{},
		tasks:          map[string]models.TaskItem{},
		media:          map[string]models.MediaAttachment{},
		tags:           map[string][]string{},
		failTaskUpdate: map[string]error{},
	}
}

func (m *memStore) GetEntry(_ context.Context, id string) (*models.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) UpdateEntry(_ context.Context, id string, p models.EntryPatch) (*models.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdateEntry != nil {
		return nil, m.failUpdateEntry
	}
	e, ok := m.entries[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.IsDraft != nil {
		e.IsDraft = *p.IsDraft
	}
	if p.UpdatedAt != nil {
		e.UpdatedAt = *p.UpdatedAt
	}
	if p.Mood.Set {
		e.Mood = p.Mood
	}
	if p.ProjectID.Set {
		e.ProjectID = p.ProjectID
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) GetTaskItems(_ context.Context, entryID string) ([]models.TaskItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TaskItem
	for _, t := range m.tasks {
		if t.EntryID == entryID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b models.TaskItem) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *memStore) CreateTaskItem(_ context.Context, item models.TaskItem) (*models.TaskItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == "" {
		m.nextID++
		item.ID = fmt.Sprintf("task-%d", m.nextID)
	}
	m.tasks[item.ID] = item
	return &item, nil
}

func (m *memStore) UpdateTaskItem(_ context.Context, id string, p models.TaskPatch) (*models.TaskItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failTaskUpdate[id]; err != nil {
		return nil, err
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	m.taskUpdates = append(m.taskUpdates, p)
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	if p.CompletedAt.Set {
		t.CompletedAt = p.CompletedAt.Ptr()
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	m.tasks[id] = t
	return &t, nil
}

func (m *memStore) DeleteTaskItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.tasks, id)
	m.taskDeletes = append(m.taskDeletes, id)
	return nil
}

func (m *memStore) GetMediaAttachments(_ context.Context, entryID string) ([]models.MediaAttachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MediaAttachment
	for _, a := range m.media {
		if a.EntryID == entryID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.MediaAttachment) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *memStore) CreateMediaAttachment(_ context.Context, a models.MediaAttachment) (*models.MediaAttachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		m.nextID++
		a.ID = fmt.Sprintf("media-%03d", m.nextID)
	}
	m.media[a.ID] = a
	return &a, nil
}

func (m *memStore) DeleteMediaAttachment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.media[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.media, id)
	return nil
}

func (m *memStore) GetEntryTagIDs(_ context.Context, entryID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTagLookup != nil {
		return nil, m.failTagLookup
	}
	return slices.Clone(m.tags[entryID]), nil
}

func (m *memStore) AddEntryTags(_ context.Context, _, entryID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[entryID] = append(m.tags[entryID], ids...)
	return nil
}

func (m *memStore) RemoveEntryTag(_ context.Context, entryID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[entryID] = slices.DeleteFunc(m.tags[entryID], func(id string) bool { return id == tagID })
	return nil
}

// memBlobs is a storage.Provider that records deletions and answers probes
// from a fixed size table.
type memBlobs struct {
	mu      sync.Mutex
	base    string
	sizes   map[string]int64
	deleted []string
}

func (b *memBlobs) Upload(_ context.Context, path string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sizes[b.base+"/"+path] = int64(len(data))
	return path, nil
}

func (b *memBlobs) PublicURL(path string) (string, bool) {
	return b.base + "/" + path, true
}

func (b *memBlobs) Delete(_ context.Context, paths []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, paths...)
	return nil
}

func (b *memBlobs) Head(_ context.Context, url string) (storage.HeadResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	size, ok := b.sizes[url]
	if !ok {
		return storage.HeadResult{}, errors.New("no such object")
	}
	return storage.HeadResult{ContentLength: size, Known: true}, nil
}
