// Package storage defines the blob store that holds uploaded media files.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
)

// HeadResult is what a metadata lookup learned about a stored object.
type HeadResult struct {
	ContentLength int64
	Known         bool
}

// Provider is the interface for blob operations. Paths are relative to the
// bucket or root, e.g. "u1/e1/3f2a.png".
type Provider interface {
	// Upload stores r at path and returns the stored path. An existing object
	// at path is apperr.ErrAlreadyExists.
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	// PublicURL returns the public URL for path. PublicURL("") is the base
	// of the managed namespace.
	PublicURL(path string) (string, bool)
	// Delete removes the objects at paths. Missing objects are not an error.
	Delete(ctx context.Context, paths []string) error
	// Head probes the size of the object behind url.
	Head(ctx context.Context, url string) (HeadResult, error)
}

// BaseURL returns the managed namespace prefix without a trailing slash.
func BaseURL(p Provider) (string, bool) {
	u, ok := p.PublicURL("")
	u = strings.TrimRight(u, "/")
	return u, ok && u != ""
}

// RelativePath strips base from url. It fails for urls outside base,
// including ones that only reach outside through dot segments.
func RelativePath(base, url string) (string, bool) {
	prefix := base + "/"
	if base == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	rel := url[len(prefix):]
	if rel == "" || path.IsAbs(rel) || path.Clean(rel) != rel {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
