// Package native implements the storage backend over the host filesystem.
//
// Paths resolve through an XDG-rooted resolver; operations map directly
// onto os primitives. This is the backend the desktop shell runs.
package native

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quillreader/backend/internal/shared/paths"
	"github.com/quillreader/backend/internal/storage"
)

// Backend implements storage.Backend with real filesystem primitives.
type Backend struct {
	resolver *paths.Resolver
	blobs    *storage.BlobRegistry
}

// New creates a native backend over the given resolver. Blob URLs are
// issued from blobs, which may be shared with the HTTP layer serving them.
func New(resolver *paths.Resolver, blobs *storage.BlobRegistry) *Backend {
	return &Backend{resolver: resolver, blobs: blobs}
}

// Kind reports paths.KindNative.
func (b *Backend) Kind() paths.Kind { return paths.KindNative }

// abs resolves a relative path and category to a host filesystem path.
// Absolute paths under None are self-contained and used as-is.
func (b *Backend) abs(relPath string, category paths.Category) string {
	if filepath.IsAbs(relPath) {
		return filepath.Clean(relPath)
	}
	return b.resolver.Resolve(relPath, category).Path()
}

// Exists reports whether the path exists. Stat failures degrade to false.
func (b *Backend) Exists(_ context.Context, relPath string, category paths.Category) bool {
	_, err := os.Stat(b.abs(relPath, category))
	return err == nil
}

// ReadFile returns the raw file contents.
func (b *Backend) ReadFile(_ context.Context, relPath string, category paths.Category) ([]byte, error) {
	data, err := os.ReadFile(b.abs(relPath, category))
	if err != nil {
		return nil, storage.WrapOS(err)
	}
	return data, nil
}

// ReadText returns the file decoded to a string.
func (b *Backend) ReadText(ctx context.Context, relPath string, category paths.Category) (string, error) {
	data, err := b.ReadFile(ctx, relPath, category)
	if err != nil {
		return "", err
	}
	return storage.DecodeText(data), nil
}

// WriteFile overwrites the file. The parent directory must already exist.
func (b *Backend) WriteFile(_ context.Context, relPath string, category paths.Category, data []byte) error {
	if err := os.WriteFile(b.abs(relPath, category), data, 0o644); err != nil {
		return storage.WrapOS(err)
	}
	return nil
}

// RemoveFile deletes a file; missing files fail with ErrNotFound.
func (b *Backend) RemoveFile(_ context.Context, relPath string, category paths.Category) error {
	if err := os.Remove(b.abs(relPath, category)); err != nil {
		return storage.WrapOS(err)
	}
	return nil
}

// CreateDir creates a directory, the full chain when recursive.
func (b *Backend) CreateDir(_ context.Context, relPath string, category paths.Category, recursive bool) error {
	target := b.abs(relPath, category)
	if recursive {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return storage.WrapOS(err)
		}
		return nil
	}
	if err := os.Mkdir(target, 0o755); err != nil {
		return storage.WrapOS(err)
	}
	return nil
}

// RemoveDir deletes a directory; without recursive it fails on non-empty.
func (b *Backend) RemoveDir(_ context.Context, relPath string, category paths.Category, recursive bool) error {
	target := b.abs(relPath, category)
	if recursive {
		if _, err := os.Stat(target); err != nil {
			return storage.WrapOS(err)
		}
		if err := os.RemoveAll(target); err != nil {
			return storage.WrapOS(err)
		}
		return nil
	}
	if err := os.Remove(target); err != nil {
		return storage.WrapOS(err)
	}
	return nil
}

// ReadDir lists immediate children.
func (b *Backend) ReadDir(_ context.Context, relPath string, category paths.Category) ([]storage.Entry, error) {
	dirents, err := os.ReadDir(b.abs(relPath, category))
	if err != nil {
		return nil, storage.WrapOS(err)
	}

	entries := make([]storage.Entry, 0, len(dirents))
	for _, d := range dirents {
		entries = append(entries, storage.Entry{Name: d.Name(), IsDir: d.IsDir()})
	}
	return entries, nil
}

// Glob matches a doublestar pattern against the category root and returns
// relative slash paths.
func (b *Backend) Glob(_ context.Context, pattern string, category paths.Category) ([]string, error) {
	root := b.resolver.Resolve("", category).Path()
	matches, err := doublestar.FilepathGlob(filepath.Join(root, filepath.FromSlash(pattern)))
	if err != nil {
		return nil, errors.Join(storage.ErrIO, err)
	}

	rel := make([]string, 0, len(matches))
	for _, m := range matches {
		r, err := filepath.Rel(root, m)
		if err != nil {
			continue
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	return rel, nil
}

// CopyFile copies an absolute source into the category-resolved
// destination. The destination's parent must exist.
func (b *Backend) CopyFile(_ context.Context, srcPath, dstRelPath string, category paths.Category) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return storage.WrapOS(err)
	}
	defer src.Close()

	dst, err := os.Create(b.abs(dstRelPath, category))
	if err != nil {
		return storage.WrapOS(err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errors.Join(storage.ErrIO, err)
	}
	return storage.WrapOS(dst.Close())
}

// URL converts a local path to a file:// URL. Fully-qualified URLs pass
// through unchanged; failures degrade to the input string.
func (b *Backend) URL(path string) string {
	if strings.Contains(path, "://") || strings.HasPrefix(path, storage.BlobScheme) {
		return path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Clean(path))}
	return u.String()
}

// BlobURL loads the file and registers it as an in-memory blob.
func (b *Backend) BlobURL(ctx context.Context, relPath string, category paths.Category) (string, error) {
	data, err := b.ReadFile(ctx, relPath, category)
	if err != nil {
		return "", err
	}
	return b.blobs.Create(data), nil
}

// EnsureRoots creates the base directory for every category so first-run
// writes have parents to land in.
func (b *Backend) EnsureRoots() error {
	for _, cat := range []paths.Category{paths.Settings, paths.Data, paths.Cache, paths.Log, paths.Books, paths.None} {
		if err := os.MkdirAll(b.resolver.Resolve("", cat).Path(), 0o755); err != nil {
			return storage.WrapOS(err)
		}
	}
	return nil
}

// Close is a no-op for the native backend.
func (b *Backend) Close() error { return nil }
