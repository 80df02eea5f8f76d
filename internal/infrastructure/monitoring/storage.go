package monitoring

import (
	"context"

	"github.com/quillreader/backend/internal/shared/paths"
	"github.com/quillreader/backend/internal/storage"
)

// InstrumentedBackend wraps a storage backend and records a count and
// latency sample for every operation it forwards. It is the only place
// storage metrics are emitted; the server installs it around whichever
// backend was selected.
type InstrumentedBackend struct {
	inner   storage.Backend
	metrics *Metrics
}

// InstrumentBackend wraps inner with metrics recording.
func InstrumentBackend(inner storage.Backend, metrics *Metrics) *InstrumentedBackend {
	return &InstrumentedBackend{inner: inner, metrics: metrics}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (b *InstrumentedBackend) Kind() paths.Kind { return b.inner.Kind() }

func (b *InstrumentedBackend) Exists(ctx context.Context, relPath string, category paths.Category) bool {
	t := NewTimer(b.metrics, "exists")
	found := b.inner.Exists(ctx, relPath, category)
	t.Stop("success")
	return found
}

func (b *InstrumentedBackend) ReadFile(ctx context.Context, relPath string, category paths.Category) ([]byte, error) {
	t := NewTimer(b.metrics, "read_file")
	data, err := b.inner.ReadFile(ctx, relPath, category)
	t.Stop(status(err))
	return data, err
}

func (b *InstrumentedBackend) ReadText(ctx context.Context, relPath string, category paths.Category) (string, error) {
	t := NewTimer(b.metrics, "read_text")
	text, err := b.inner.ReadText(ctx, relPath, category)
	t.Stop(status(err))
	return text, err
}

func (b *InstrumentedBackend) WriteFile(ctx context.Context, relPath string, category paths.Category, data []byte) error {
	t := NewTimer(b.metrics, "write_file")
	err := b.inner.WriteFile(ctx, relPath, category, data)
	t.Stop(status(err))
	return err
}

func (b *InstrumentedBackend) RemoveFile(ctx context.Context, relPath string, category paths.Category) error {
	t := NewTimer(b.metrics, "remove_file")
	err := b.inner.RemoveFile(ctx, relPath, category)
	t.Stop(status(err))
	return err
}

func (b *InstrumentedBackend) CreateDir(ctx context.Context, relPath string, category paths.Category, recursive bool) error {
	t := NewTimer(b.metrics, "create_dir")
	err := b.inner.CreateDir(ctx, relPath, category, recursive)
	t.Stop(status(err))
	return err
}

func (b *InstrumentedBackend) RemoveDir(ctx context.Context, relPath string, category paths.Category, recursive bool) error {
	t := NewTimer(b.metrics, "remove_dir")
	err := b.inner.RemoveDir(ctx, relPath, category, recursive)
	t.Stop(status(err))
	return err
}

func (b *InstrumentedBackend) ReadDir(ctx context.Context, relPath string, category paths.Category) ([]storage.Entry, error) {
	t := NewTimer(b.metrics, "read_dir")
	entries, err := b.inner.ReadDir(ctx, relPath, category)
	t.Stop(status(err))
	return entries, err
}

func (b *InstrumentedBackend) Glob(ctx context.Context, pattern string, category paths.Category) ([]string, error) {
	t := NewTimer(b.metrics, "glob")
	matches, err := b.inner.Glob(ctx, pattern, category)
	t.Stop(status(err))
	return matches, err
}

func (b *InstrumentedBackend) CopyFile(ctx context.Context, srcPath, dstRelPath string, category paths.Category) error {
	t := NewTimer(b.metrics, "copy_file")
	err := b.inner.CopyFile(ctx, srcPath, dstRelPath, category)
	t.Stop(status(err))
	return err
}

// URL is pure string rewriting; not worth a latency sample.
func (b *InstrumentedBackend) URL(path string) string { return b.inner.URL(path) }

func (b *InstrumentedBackend) BlobURL(ctx context.Context, relPath string, category paths.Category) (string, error) {
	t := NewTimer(b.metrics, "blob_url")
	url, err := b.inner.BlobURL(ctx, relPath, category)
	t.Stop(status(err))
	return url, err
}

func (b *InstrumentedBackend) Close() error { return b.inner.Close() }
