// Package blob stores uploaded file bytes (task documents, profile pictures)
// outside the database and hands out URLs for them.
package blob

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
)

// Store is the byte storage used by the planner and user services.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns common.ErrNotFound when key is absent.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns a link clients can fetch key from. It may expire.
	URL(ctx context.Context, key string) (string, error)
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
}

// ContentType guesses a MIME type from the key extension.
func ContentType(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// SafeName reduces an uploaded file name to a single key segment.
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '/', r == '?', r == '#', r == '%':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}
