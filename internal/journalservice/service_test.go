package journalservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/journalsync/internal/apperr"
	"github.com/starford/journalsync/internal/document"
	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/testutil"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	db := testutil.TestDB(t)
	dir, blobs := testutil.TestBlobs(t)
	return NewService(db, blobs, nil), dir
}

func TestCreateEntryFromPrompt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.CreateEntry(ctx, "u1", "", "")
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if empty.Content != document.DefaultContent || !empty.IsDraft {
		t.Errorf("empty entry = %+v", empty)
	}

	prompted, err := svc.CreateEntry(ctx, "u1", "Evening", "What went well?")
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	doc, err := document.Parse(prompted.Content)
	if err != nil || document.Text(doc[0]) != "What went well?" {
		t.Errorf("prompt content = %q (%v)", prompted.Content, err)
	}
	if prompted.Checksum != document.Checksum(prompted.Content) {
		t.Error("checksum mismatch")
	}
}

func TestInsertTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	e, _ := svc.CreateEntry(ctx, "u1", "", "")

	tb, err := svc.InsertTask(ctx, e.ID)
	if err != nil {
		t.Fatalf("InsertTask: %v", err)
	}
	if tb.Task.Description != "" || tb.Task.IsCompleted || tb.Task.Priority != 0 || tb.Task.UserID != "u1" {
		t.Errorf("task = %+v", tb.Task)
	}
	if tb.Block.Prop(document.PropTaskID) != tb.Task.ID || tb.Block.Prop(document.PropChecked) != "false" {
		t.Errorf("block props = %v", tb.Block.Props)
	}

	if _, err := svc.InsertTask(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing entry: %v", err)
	}
}

// seedTaskEntry creates an entry whose document holds one task block.
func seedTaskEntry(t *testing.T, svc *Service) (entryID, taskID string) {
	t.Helper()
	ctx := context.Background()
	e, _ := svc.CreateEntry(ctx, "u1", "", "")
	tb, err := svc.InsertTask(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	content, _ := document.Serialize(document.Document{
		{Type: document.TypeParagraph, Content: []byte(`"keep me"`)},
		tb.Block,
	})
	if _, err := svc.Store().UpdateEntry(ctx, e.ID, models.EntryPatch{Content: &content}); err != nil {
		t.Fatal(err)
	}
	return e.ID, tb.Task.ID
}

func TestUpdateTaskRewritesBlock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	entryID, taskID := seedTaskEntry(t, svc)

	done := true
	desc := "call mum"
	prio := 2
	task, err := svc.UpdateTask(ctx, taskID, TaskUpdate{Description: &desc, IsCompleted: &done, Priority: &prio})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if !task.IsCompleted || task.CompletedAt == nil || task.Description != desc || task.Priority != 2 {
		t.Errorf("task = %+v", task)
	}

	e, _ := svc.GetEntry(ctx, entryID)
	doc, err := document.Parse(e.Content)
	if err != nil {
		t.Fatal(err)
	}
	refs := document.Tasks(doc)
	if len(refs) != 1 || !refs[0].Checked || refs[0].Priority != 2 || refs[0].Text != desc {
		t.Errorf("refs = %+v", refs)
	}
	if document.Text(doc[0]) != "keep me" {
		t.Error("unrelated block changed")
	}

	reopen := false
	task, _ = svc.UpdateTask(ctx, taskID, TaskUpdate{IsCompleted: &reopen})
	if task.IsCompleted || task.CompletedAt != nil {
		t.Errorf("reopened task = %+v", task)
	}
}

func TestDeleteTaskRemovesBlock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	entryID, taskID := seedTaskEntry(t, svc)

	if err := svc.DeleteTask(ctx, taskID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	e, _ := svc.GetEntry(ctx, entryID)
	doc, _ := document.Parse(e.Content)
	if len(doc) != 1 || len(document.Tasks(doc)) != 0 {
		t.Errorf("content after delete = %s", e.Content)
	}
	if err := svc.DeleteTask(ctx, taskID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

type recordingDocs struct {
	content map[string]string
}

func (r *recordingDocs) RewriteDocument(entryID string, fn func(document.Document) (document.Document, bool)) bool {
	doc, err := document.Parse(r.content[entryID])
	if err != nil {
		return false
	}
	doc, changed := fn(doc)
	if changed {
		r.content[entryID], _ = document.Serialize(doc)
	}
	return changed
}

func TestTaskEditsReachOpenDocuments(t *testing.T) {
	db := testutil.TestDB(t)
	_, blobs := testutil.TestBlobs(t)
	open := &recordingDocs{content: map[string]string{}}
	svc := NewService(db, blobs, nil, WithOpenDocuments(open))
	ctx := context.Background()
	entryID, taskID := seedTaskEntry(t, svc)

	e, _ := svc.GetEntry(ctx, entryID)
	open.content[entryID] = e.Content

	done := true
	if _, err := svc.UpdateTask(ctx, taskID, TaskUpdate{IsCompleted: &done}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	doc, _ := document.Parse(open.content[entryID])
	if refs := document.Tasks(doc); len(refs) != 1 || !refs[0].Checked {
		t.Errorf("open document refs = %+v", refs)
	}

	if err := svc.DeleteTask(ctx, taskID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	doc, _ = document.Parse(open.content[entryID])
	if refs := document.Tasks(doc); len(refs) != 0 {
		t.Errorf("open document still holds the task: %+v", refs)
	}
}

func TestAttachFile(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	e, _ := svc.CreateEntry(ctx, "u1", "", "")

	url, err := svc.AttachFile(ctx, e.ID, "Holiday.PNG", strings.NewReader("png-bytes"), 9)
	if err != nil {
		t.Fatalf("AttachFile: %v", err)
	}
	prefix := testutil.MediaBase + "/u1/" + e.ID + "/"
	if !strings.HasPrefix(url, prefix) || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q", url)
	}
	rel := strings.TrimPrefix(url, testutil.MediaBase+"/")
	if data, err := os.ReadFile(filepath.Join(dir, rel)); err != nil || string(data) != "png-bytes" {
		t.Errorf("stored file = %q, %v", data, err)
	}
	media, _ := svc.ListAttachments(ctx, e.ID)
	if len(media) != 0 {
		t.Errorf("upload must not create attachment rows, got %d", len(media))
	}

	if _, err := svc.AttachFile(ctx, e.ID, "noext", strings.NewReader("x"), 1); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("no extension: %v", err)
	}
}

func TestDeleteEntryRemovesFiles(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	e, _ := svc.CreateEntry(ctx, "u1", "", "")
	url, _ := svc.AttachFile(ctx, e.ID, "a.jpg", strings.NewReader("jpg"), 3)
	rel := strings.TrimPrefix(url, testutil.MediaBase+"/")
	if _, err := svc.Store().CreateMediaAttachment(ctx, models.MediaAttachment{
		UserID: "u1", EntryID: e.ID, FilePath: rel, FileURLCached: url, FileType: models.FileTypeImage,
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, rel)); !os.IsNotExist(err) {
		t.Errorf("file still on disk: %v", err)
	}
	if _, err := svc.GetEntry(ctx, e.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("entry still present: %v", err)
	}
}
