package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/journalsync/internal/document"
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/reconcile"
)

// Event kinds delivered to an Observer.
const (
	EventDirty      = "entry.dirty"
	EventSaving     = "entry.saving"
	EventSaved      = "entry.saved"
	EventSaveFailed = "entry.save_failed"
)

// Saver runs one save. *reconcile.Engine satisfies it.
type Saver interface {
	Save(ctx context.Context, req reconcile.SaveRequest) (*reconcile.SaveResult, error)
}

// Status is a point-in-time view of a session.
type Status struct {
	EntryID   string           `json:"entry_id"`
	Dirty     bool             `json:"dirty"`
	Saving    bool             `json:"saving"`
	LastSaved *time.Time       `json:"last_saved,omitempty"`
	LastError string           `json:"last_error,omitempty"`
	Stats     *reconcile.Stats `json:"last_stats,omitempty"`
	Checksum  string           `json:"checksum"`
}

// Observer receives status transitions. It is called outside session locks.
type Observer func(kind string, st Status)

// Options configure sessions.
type Options struct {
	QuietPeriod    time.Duration
	SerializeSaves bool
	SaveTimeout    time.Duration
	Logger         *slog.Logger
	Observer       Observer
}

// Session is one client editing one entry.
type Session struct {
	entryID string
	userID  string
	saver   Saver
	opts    Options
	logger  *slog.Logger
	sched   *Scheduler

	mu        sync.Mutex
	fields    models.EntryFields
	snapshot  models.EntryFields
	tracker   Tracker
	saving    int
	lastSaved *time.Time
	lastErr   error
	lastStats *reconcile.Stats
}

// New opens a session whose baseline is the stored entry. Unusable stored
// content is replaced by the default document up front, exactly as the
// editor would show it.
func New(entry *models.JournalEntry, tagIDs []string, saver Saver, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := models.FieldsOf(entry, tagIDs)
	_, base.Content, _ = document.ParseOrDefault(base.Content)

	s := &Session{
		entryID:  entry.ID,
		userID:   entry.UserID,
		saver:    saver,
		opts:     opts,
		logger:   logger.With(slog.String("entry_id", entry.ID)),
		fields:   base.Clone(),
		snapshot: base,
	}
	s.sched = NewScheduler(opts.QuietPeriod, opts.SerializeSaves, s.runSave)
	return s
}

// EntryID returns the entry this session edits.
func (s *Session) EntryID() string { return s.entryID }

// SetTitle updates the title.
func (s *Session) SetTitle(v string) {
	s.Update(func(f *models.EntryFields) { f.Title = v })
}

// SetContent updates the serialized document.
func (s *Session) SetContent(v string) {
	s.Update(func(f *models.EntryFields) { f.Content = v })
}

// SetTags replaces the linked tag ids.
func (s *Session) SetTags(ids []string) {
	s.Update(func(f *models.EntryFields) { f.TagIDs = append([]string(nil), ids...) })
}

// SetMood updates the mood; a null optional clears it.
func (s *Session) SetMood(v models.Optional[models.Mood]) {
	s.Update(func(f *models.EntryFields) { f.Mood = v })
}

// SetProject updates the project reference; a null optional unassigns it.
func (s *Session) SetProject(v models.Optional[string]) {
	s.Update(func(f *models.EntryFields) { f.ProjectID = v })
}

// Update applies fn to the current fields and reschedules. A change that
// leaves the session dirty restarts the quiet period; one that makes it
// clean again drops the pending save.
func (s *Session) Update(fn func(*models.EntryFields)) {
	s.mu.Lock()
	fn(&s.fields)
	dirty, became := s.tracker.Observe(s.fields, s.snapshot)
	s.mu.Unlock()

	if !dirty {
		s.sched.Cancel()
		return
	}
	s.sched.Signal()
	if became {
		s.notify(EventDirty)
	}
}

// SaveNow saves immediately, skipping the quiet period.
func (s *Session) SaveNow() {
	s.sched.Flush()
}

// Fields returns a copy of the current field values.
func (s *Session) Fields() models.EntryFields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields.Clone()
}

// Snapshot returns a copy of the last persisted field values.
func (s *Session) Snapshot() models.EntryFields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Status reports dirtiness and save progress.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	st := Status{
		EntryID:   s.entryID,
		Dirty:     s.tracker.Dirty(),
		Saving:    s.saving > 0,
		LastSaved: s.lastSaved,
		Stats:     s.lastStats,
		Checksum:  document.Checksum(s.snapshot.Content),
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// ApplyDocument rewrites both the working content and the snapshot with fn.
// It carries edits made to the stored document outside this session, such as
// a task completed elsewhere, so the next save does not revert them. A block
// present in both stays in step and dirtiness is unchanged.
func (s *Session) ApplyDocument(fn func(document.Document) (document.Document, bool)) bool {
	s.mu.Lock()
	cur, curChanged := rewriteContent(s.fields.Content, fn)
	if curChanged {
		s.fields.Content = cur
	}
	snap, snapChanged := rewriteContent(s.snapshot.Content, fn)
	if snapChanged {
		s.snapshot.Content = snap
	}
	_, became := s.tracker.Observe(s.fields, s.snapshot)
	s.mu.Unlock()

	if became {
		s.sched.Signal()
		s.notify(EventDirty)
	}
	return curChanged || snapChanged
}

func rewriteContent(content string, fn func(document.Document) (document.Document, bool)) (string, bool) {
	doc, err := document.Parse(content)
	if err != nil {
		return content, false
	}
	doc, changed := fn(doc)
	if !changed {
		return content, false
	}
	out, err := document.Serialize(doc)
	if err != nil {
		return content, false
	}
	return out, true
}

// Close drops a pending countdown. A save already running finishes.
func (s *Session) Close() {
	s.sched.Close()
}

// Wait blocks until running saves have returned. Call after Close.
func (s *Session) Wait() {
	s.sched.Wait()
}

func (s *Session) notify(kind string) {
	if s.opts.Observer == nil {
		return
	}
	s.opts.Observer(kind, s.Status())
}

// runSave is the scheduler's SaveFunc. Field values are captured here, at
// fire time.
func (s *Session) runSave(ctx context.Context) error {
	if s.opts.SaveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SaveTimeout)
		defer cancel()
	}

	s.mu.Lock()
	// A follow-up queued behind a save that already wrote these values.
	if !s.tracker.Dirty() {
		s.mu.Unlock()
		return nil
	}
	req := reconcile.SaveRequest{
		EntryID:  s.entryID,
		UserID:   s.userID,
		Fields:   s.fields.Clone(),
		Baseline: s.snapshot.Clone(),
	}
	s.saving++
	s.mu.Unlock()
	s.notify(EventSaving)

	res, err := s.saver.Save(ctx, req)

	s.mu.Lock()
	s.saving--
	if err != nil {
		s.lastErr = err
		s.tracker.MarkDirty()
		s.mu.Unlock()
		s.logger.Error("session: save failed", slog.String("error", err.Error()))
		s.notify(EventSaveFailed)
		return err
	}

	now := time.Now().UTC()
	s.snapshot = res.Snapshot
	s.lastSaved = &now
	s.lastErr = nil
	stats := res.Stats
	s.lastStats = &stats
	// The editor shows the default document once it has been substituted.
	if res.Defaulted && s.fields.Content == req.Fields.Content {
		s.fields.Content = res.Snapshot.Content
	}
	// Edits made while the save ran are still unsaved.
	dirty, _ := s.tracker.Observe(s.fields, s.snapshot)
	s.mu.Unlock()

	s.logger.Info("session: saved",
		slog.Int("record_writes", stats.RecordWrites()),
		slog.Bool("defaulted", res.Defaulted),
	)
	s.notify(EventSaved)
	if dirty {
		s.sched.Signal()
	}
	return nil
}
