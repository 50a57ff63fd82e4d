package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/journalsync/internal/apperr"
)

const testBase = "http://media.test/media-attachments"

func tempStore(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir(), testBase+"/", 0)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestUploadAndHead(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	path, err := s.Upload(ctx, "u1/e1/a.png", strings.NewReader("12345"), 5, "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	url, ok := s.PublicURL(path)
	if !ok || url != testBase+"/u1/e1/a.png" {
		t.Fatalf("PublicURL = %q, %v", url, ok)
	}
	head, err := s.Head(ctx, url)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if !head.Known || head.ContentLength != 5 {
		t.Errorf("head = %+v", head)
	}
}

func TestUploadRefusesOverwrite(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	if _, err := s.Upload(ctx, "a.png", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatal(err)
	}
	_, err := s.Upload(ctx, "a.png", strings.NewReader("y"), 1, "")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestDeleteIgnoresMissing(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	_, _ = s.Upload(ctx, "u1/e1/a.png", strings.NewReader("x"), 1, "")
	if err := s.Delete(ctx, []string{"u1/e1/a.png", "u1/e1/missing.png"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "u1/e1/a.png")); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
}

func TestBaseURLAndRelativePath(t *testing.T) {
	s := tempStore(t)
	base, ok := BaseURL(s)
	if !ok || base != testBase {
		t.Fatalf("BaseURL = %q, %v", base, ok)
	}
	cases := []struct {
		url  string
		rel  string
		want bool
	}{
		{testBase + "/u1/e1/a.png", "u1/e1/a.png", true},
		{testBase + "/", "", false},
		{testBase + "x/u1/a.png", "", false},
		{"https://elsewhere.test/a.png", "", false},
		{testBase + "/../secret.png", "", false},
		{testBase + "/u1/../../secret.png", "", false},
		{testBase + "/u1/./a.png", "", false},
		{testBase + "/..", "", false},
		{testBase + "//etc/a.png", "", false},
		{testBase + "/u1/e1/a..b.png", "u1/e1/a..b.png", true},
	}
	for _, tc := range cases {
		rel, ok := RelativePath(base, tc.url)
		if ok != tc.want || rel != tc.rel {
			t.Errorf("RelativePath(%q) = %q, %v", tc.url, rel, ok)
		}
	}
}

func TestHeadExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Length", "2048")
	}))
	defer srv.Close()

	s := tempStore(t)
	head, err := s.Head(context.Background(), srv.URL+"/pic.jpg")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if !head.Known || head.ContentLength != 2048 {
		t.Errorf("head = %+v", head)
	}
}

func TestHeadExternalFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	s := tempStore(t)
	if _, err := s.Head(context.Background(), srv.URL+"/gone.png"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	for _, p := range []string{"../../etc/passwd", "../outside.png", "/etc/shadow", ""} {
		if _, err := s.Upload(ctx, p, strings.NewReader("x"), 1, ""); err == nil {
			t.Errorf("expected error for upload to %q", p)
		}
	}
}

func TestUploadLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Upload(context.Background(), "u1/a.gif", strings.NewReader("gif"), 3, "image/gif"); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), "u1", ".journalsync-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestMimeType(t *testing.T) {
	cases := map[string]string{
		"a.jpg":     "image/jpeg",
		"a.JPEG":    "image/jpeg",
		"a.png":     "image/png",
		"a.gif":     "image/gif",
		"a.webp":    "image/webp",
		"a.heic":    DefaultMimeType,
		"no-ext":    DefaultMimeType,
		"dir.x/a.b": DefaultMimeType,
	}
	for name, want := range cases {
		if got := MimeType(name); got != want {
			t.Errorf("MimeType(%q) = %q, want %q", name, got, want)
		}
	}
}
