package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/journalsync/internal/document"
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/reconcile"
)

type fakeSaver struct {
	mu   sync.Mutex
	reqs []reconcile.SaveRequest
	err  error
	gate chan struct{}
}

func (f *fakeSaver) Save(_ context.Context, req reconcile.SaveRequest) (*reconcile.SaveResult, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	_, content, defaulted := document.ParseOrDefault(req.Fields.Content)
	snap := req.Fields.Clone()
	snap.Content = content
	return &reconcile.SaveResult{Snapshot: snap, Defaulted: defaulted}, nil
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeSaver) last() reconcile.SaveRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

type eventLog struct {
	mu    sync.Mutex
	kinds []string
}

func (l *eventLog) observe(kind string, _ Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kinds = append(l.kinds, kind)
}

func (l *eventLog) has(kind string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range l.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

const quiet = 40 * time.Millisecond

func testEntry() *models.JournalEntry {
	return &models.JournalEntry{
		ID:        "e1",
		UserID:    "u1",
		Title:     "Start",
		Content:   `[{"type":"paragraph","content":"a"}]`,
		Mood:      models.Null[models.Mood](),
		ProjectID: models.Some("p1"),
	}
}

func newTestSession(t *testing.T, saver Saver, log *eventLog) *Session {
	t.Helper()
	opts := Options{QuietPeriod: quiet, SerializeSaves: true}
	if log != nil {
		opts.Observer = log.observe
	}
	s := New(testEntry(), []string{"t1", "t2"}, saver, opts)
	t.Cleanup(s.Close)
	return s
}

func TestDirtyTracking(t *testing.T) {
	saver := &fakeSaver{}
	log := &eventLog{}
	s := newTestSession(t, saver, log)

	s.SetTitle("Start")
	s.SetTags([]string{"t2", "t1"})
	s.SetMood(models.Optional[models.Mood]{})
	if s.Status().Dirty {
		t.Fatal("equal values must not make the session dirty")
	}

	s.SetTitle("Changed")
	if !s.Status().Dirty || !log.has(EventDirty) {
		t.Fatal("title change should make the session dirty")
	}
	s.SetTitle("Start")
	if s.Status().Dirty {
		t.Fatal("reverting the title should make the session clean")
	}
	time.Sleep(3 * quiet)
	if saver.count() != 0 {
		t.Errorf("save ran for a clean session: %d", saver.count())
	}
}

func TestDebouncedSaveUsesFreshestValues(t *testing.T) {
	saver := &fakeSaver{}
	log := &eventLog{}
	s := newTestSession(t, saver, log)

	for _, text := range []string{"b", "bc", "bcd"} {
		s.SetContent(`[{"type":"paragraph","content":"` + text + `"}]`)
		time.Sleep(quiet / 4)
	}
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return saver.count() == 1 }, "expected a single save")
	time.Sleep(3 * quiet)
	if n := saver.count(); n != 1 {
		t.Fatalf("saves = %d, want 1", n)
	}
	req := saver.last()
	if req.Fields.Content != `[{"type":"paragraph","content":"bcd"}]` {
		t.Errorf("saved content = %q", req.Fields.Content)
	}
	if req.Baseline.Content != testEntry().Content {
		t.Errorf("baseline = %q", req.Baseline.Content)
	}

	eventually(t, time.Second, 5*time.Millisecond, func() bool {
		st := s.Status()
		return !st.Dirty && !st.Saving && st.LastSaved != nil
	}, "status not settled after save")
	if !log.has(EventSaving) || !log.has(EventSaved) {
		t.Errorf("events = %v", log.kinds)
	}
	if s.Snapshot().Content != req.Fields.Content {
		t.Error("snapshot not replaced")
	}
}

func TestFailedSaveStaysDirty(t *testing.T) {
	saver := &fakeSaver{err: errors.New("network down")}
	log := &eventLog{}
	s := newTestSession(t, saver, log)

	s.SetTitle("Offline edit")
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return log.has(EventSaveFailed) }, "expected save_failed")

	st := s.Status()
	if !st.Dirty || st.LastError == "" || st.Saving {
		t.Errorf("status = %+v", st)
	}
	if s.Snapshot().Title != "Start" {
		t.Error("snapshot changed after failure")
	}
	time.Sleep(3 * quiet)
	if n := saver.count(); n != 1 {
		t.Errorf("saves = %d, failures must not retry on their own", n)
	}

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()
	s.SaveNow()
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return !s.Status().Dirty }, "manual retry did not save")
	if s.Status().LastError != "" {
		t.Error("last error not cleared")
	}
}

func TestEditDuringSaveReschedules(t *testing.T) {
	saver := &fakeSaver{gate: make(chan struct{})}
	s := newTestSession(t, saver, nil)

	s.SetTitle("one")
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return s.Status().Saving }, "save not started")
	s.SetTitle("two")
	saver.gate <- struct{}{}

	eventually(t, time.Second, 5*time.Millisecond, func() bool { return saver.count() == 1 }, "first save missing")
	if !s.Status().Dirty {
		t.Error("edit made during the save should keep the session dirty")
	}
	saver.gate <- struct{}{}
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return saver.count() == 2 }, "second save missing")
	if got := saver.last().Fields.Title; got != "two" {
		t.Errorf("second save title = %q", got)
	}
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return !s.Status().Dirty }, "session still dirty")
}

func TestQueuedSaveSkippedWhenAlreadySaved(t *testing.T) {
	saver := &fakeSaver{gate: make(chan struct{})}
	log := &eventLog{}
	s := newTestSession(t, saver, log)

	s.SetTitle("b")
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return s.Status().Saving }, "save not started")
	s.SetTitle("c")
	// Let the countdown for "c" expire while "b" is still running.
	time.Sleep(2 * quiet)
	close(saver.gate)

	eventually(t, time.Second, 5*time.Millisecond, func() bool { return saver.count() == 2 }, "second save missing")
	time.Sleep(4 * quiet)
	if n := saver.count(); n != 2 {
		t.Fatalf("saves = %d, want 2", n)
	}
	if got := saver.last().Fields.Title; got != "c" {
		t.Errorf("last save title = %q", got)
	}
	st := s.Status()
	if st.Dirty || st.Saving {
		t.Errorf("status = %+v", st)
	}
}

func TestApplyDocumentCarriesExternalTaskEdit(t *testing.T) {
	saver := &fakeSaver{}
	entry := testEntry()
	entry.Content = `[{"type":"todo","props":{"todoId":"t1","checked":"false","priority":"0"},"content":[]}]`
	s := New(entry, nil, saver, Options{QuietPeriod: quiet, SerializeSaves: true})
	t.Cleanup(s.Close)

	complete := func(doc document.Document) (document.Document, bool) {
		return doc, document.ApplyTaskState(doc, "t1", document.TaskState{Checked: true})
	}
	if !s.ApplyDocument(complete) {
		t.Fatal("task block not rewritten")
	}
	if s.Status().Dirty {
		t.Fatal("external edit made the session dirty")
	}
	if s.ApplyDocument(complete) {
		t.Error("second rewrite should be a no-op")
	}

	s.SetTitle("Later")
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return saver.count() == 1 }, "save missing")
	req := saver.last()
	for name, content := range map[string]string{"fields": req.Fields.Content, "baseline": req.Baseline.Content} {
		doc, err := document.Parse(content)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		tasks := document.Tasks(doc)
		if len(tasks) != 1 || !tasks[0].Checked {
			t.Errorf("%s tasks = %+v", name, tasks)
		}
	}
}

func TestRegistryRewriteDocument(t *testing.T) {
	r := NewRegistry(&fakeSaver{}, Options{QuietPeriod: quiet})
	defer r.CloseAll()

	appendTask := func(doc document.Document) (document.Document, bool) {
		return document.Document{doc[0], document.NewTaskBlock("t9")}, true
	}
	if r.RewriteDocument("e1", appendTask) {
		t.Fatal("rewrite without an open session should report false")
	}
	s, _ := r.Open(testEntry(), nil)
	if !r.RewriteDocument("e1", appendTask) {
		t.Fatal("rewrite of the open session should report true")
	}
	if got := s.Fields().Content; got != s.Snapshot().Content {
		t.Errorf("fields and snapshot diverged: %q", got)
	}
}

func TestDefaultedContentDoesNotLoop(t *testing.T) {
	saver := &fakeSaver{}
	s := newTestSession(t, saver, nil)

	s.SetContent("garbage")
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return saver.count() == 1 }, "save missing")
	eventually(t, time.Second, 5*time.Millisecond, func() bool { return !s.Status().Dirty }, "still dirty")
	if s.Fields().Content != document.DefaultContent {
		t.Errorf("content = %q", s.Fields().Content)
	}
	time.Sleep(3 * quiet)
	if n := saver.count(); n != 1 {
		t.Errorf("saves = %d", n)
	}
}

func TestCloseDropsPendingSave(t *testing.T) {
	saver := &fakeSaver{}
	s := New(testEntry(), nil, saver, Options{QuietPeriod: quiet, SerializeSaves: true})
	s.SetTitle("never saved")
	s.Close()
	time.Sleep(3 * quiet)
	if n := saver.count(); n != 0 {
		t.Errorf("saves = %d after close", n)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&fakeSaver{}, Options{QuietPeriod: quiet})
	defer r.CloseAll()

	a, created := r.Open(testEntry(), nil)
	if !created {
		t.Fatal("first open should create")
	}
	b, created := r.Open(testEntry(), nil)
	if created || a != b {
		t.Fatal("second open should return the same session")
	}
	if got, ok := r.Get("e1"); !ok || got != a {
		t.Fatal("Get failed")
	}
	if !r.Close("e1") || r.Close("e1") {
		t.Fatal("Close should succeed exactly once")
	}
	if r.Len() != 0 {
		t.Errorf("len = %d", r.Len())
	}
}
