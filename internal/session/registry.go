package session

import (
	"sync"

	"github.com/starford/journalsync/internal/document"
	"github.com/starford/journalsync/internal/models"
)

// Registry keeps at most one open session per entry.
type Registry struct {
	saver Saver
	opts  Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry; every session it opens shares
// saver and opts.
func NewRegistry(saver Saver, opts Options) *Registry {
	return &Registry{
		saver:    saver,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for entry, creating it from the stored state if
// none is open. created reports whether a new session was made.
func (r *Registry) Open(entry *models.JournalEntry, tagIDs []string) (s *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[entry.ID]; ok {
		return s, false
	}
	s = New(entry, tagIDs, r.saver, r.opts)
	r.sessions[entry.ID] = s
	return s, true
}

// Get returns the open session for entryID.
func (r *Registry) Get(entryID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[entryID]
	return s, ok
}

// RewriteDocument applies fn to the open session of entryID, if any. It
// reports whether the session's content changed.
func (r *Registry) RewriteDocument(entryID string, fn func(document.Document) (document.Document, bool)) bool {
	s, ok := r.Get(entryID)
	if !ok {
		return false
	}
	return s.ApplyDocument(fn)
}

// Close tears down the session for entryID, dropping any pending save.
func (r *Registry) Close(entryID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[entryID]
	delete(r.sessions, entryID)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll tears down every session and waits for running saves to finish.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	for _, s := range all {
		s.Wait()
	}
}
