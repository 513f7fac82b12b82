// Package storage persists uploaded book images and serves them back.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
)

var ErrNotFound = errors.New("artifact not found")

// ArtifactStore keeps uploaded images. Save returns the public reference
// path that is stored as the book's image_url.
type ArtifactStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, ref string) error
	// Handler serves stored objects. It expects the URL prefix to have
	// been stripped, so the request path is "/<name>".
	Handler() http.Handler
}

func refFor(prefix, name string) string {
	return strings.TrimRight(prefix, "/") + "/" + name
}

// nameFromRef maps a reference produced by refFor back to the object name.
func nameFromRef(prefix, ref string) (string, bool) {
	p := strings.TrimRight(prefix, "/") + "/"
	if !strings.HasPrefix(ref, p) {
		return "", false
	}
	name := strings.TrimPrefix(ref, p)
	return name, validObjectName(name)
}

func requestedName(r *http.Request) (string, bool) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	return name, validObjectName(name)
}
