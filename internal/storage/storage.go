package storage

import (
	"context"

	"github.com/quillreader/backend/internal/shared/paths"
)

// Entry is one name in a directory listing. Order is unspecified.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

// Backend is the storage capability set implemented once per runtime
// environment. All paths are relative and resolved against the given
// category; see package doc for the error policy.
type Backend interface {
	// Kind reports which environment this backend targets. Read once at
	// startup for capability decisions, never per call.
	Kind() paths.Kind

	// Exists reports whether the path exists. Never fails: internal
	// errors degrade to false.
	Exists(ctx context.Context, relPath string, category paths.Category) bool

	// ReadFile returns the raw bytes of a file.
	ReadFile(ctx context.Context, relPath string, category paths.Category) ([]byte, error)

	// ReadText returns the file decoded to a string. Non-UTF-8 content
	// is converted via charset detection.
	ReadText(ctx context.Context, relPath string, category paths.Category) (string, error)

	// WriteFile overwrites the file with data. Parent directories are
	// not created implicitly; call CreateDir first.
	WriteFile(ctx context.Context, relPath string, category paths.Category, data []byte) error

	// RemoveFile deletes a file. A missing file fails with ErrNotFound;
	// callers that want idempotent removal check the sentinel.
	RemoveFile(ctx context.Context, relPath string, category paths.Category) error

	// CreateDir creates a directory. With recursive it creates the full
	// chain and succeeds if the directory already exists; without it the
	// parent must exist.
	CreateDir(ctx context.Context, relPath string, category paths.Category, recursive bool) error

	// RemoveDir deletes a directory. Without recursive it fails on a
	// non-empty directory.
	RemoveDir(ctx context.Context, relPath string, category paths.Category, recursive bool) error

	// ReadDir lists the immediate children of a directory. An empty
	// directory yields an empty slice, not an error.
	ReadDir(ctx context.Context, relPath string, category paths.Category) ([]Entry, error)

	// Glob returns the relative paths under the category root that match
	// a doublestar pattern.
	Glob(ctx context.Context, pattern string, category paths.Category) ([]string, error)

	// CopyFile copies an already-resolved source path to a destination
	// resolved via category.
	CopyFile(ctx context.Context, srcPath, dstRelPath string, category paths.Category) error

	// URL converts a local path into a displayable URL. Fully-qualified
	// URLs pass through unchanged. Never fails; degrades to best effort.
	URL(path string) string

	// BlobURL reads the file as binary and registers it as an in-memory
	// blob, returning its URL. The caller revokes it when no longer
	// displayed; the backend does not track blob lifetimes.
	BlobURL(ctx context.Context, relPath string, category paths.Category) (string, error)

	// Close releases backend resources.
	Close() error
}
