package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/journalsync/internal/apperr"
)

// FS implements Provider backed by a local directory. Files are expected to
// be served at publicBase by a static file server.
type FS struct {
	root       string // absolute path to media directory
	publicBase string
	client     *http.Client
}

// NewFS creates a new FS provider rooted at the given directory, creating it
// if needed.
func NewFS(root, publicBase string, probeTimeout time.Duration) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{
		root:       abs,
		publicBase: strings.TrimRight(publicBase, "/"),
		client:     newProbeClient(probeTimeout),
	}, nil
}

// Root returns the absolute media directory, for mounting a file server.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("storage: empty path")
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes media root: %s", rel)
	}
	return abs, nil
}

// Upload writes the object atomically: tmp file → fsync → rename.
func (f *FS) Upload(_ context.Context, path string, r io.Reader, _ int64, _ string) (string, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err == nil {
		return "", fmt.Errorf("storage: upload %s: %w", path, apperr.ErrAlreadyExists)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".journalsync-tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return path, nil
}

// PublicURL joins path onto the configured public base.
func (f *FS) PublicURL(path string) (string, bool) {
	if f.publicBase == "" {
		return "", false
	}
	return joinURL(f.publicBase, path), true
}

// Delete removes files; files that are already gone are skipped.
func (f *FS) Delete(_ context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		abs, err := f.safePath(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("storage: delete %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Head stats managed files directly and falls back to an HTTP HEAD for
// anything else.
func (f *FS) Head(ctx context.Context, url string) (HeadResult, error) {
	if rel, ok := RelativePath(f.publicBase, url); ok {
		abs, err := f.safePath(rel)
		if err != nil {
			return HeadResult{}, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return HeadResult{}, fmt.Errorf("storage: stat %s: %w", rel, err)
		}
		return HeadResult{ContentLength: info.Size(), Known: true}, nil
	}
	return httpHead(ctx, f.client, url)
}
