package storage

import (
	"path"
	"strings"
)

// DefaultMimeType is used for extensions not in the table.
const DefaultMimeType = "application/octet-stream"

var extToMime = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// MimeType returns the content type for a file name based on its extension.
func MimeType(name string) string {
	if mt, ok := extToMime[Ext(name)]; ok {
		return mt
	}
	return DefaultMimeType
}

// Ext returns the lowercase extension of name without the dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}
