package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "abc123"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "library.json"), []byte(`{"version":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123", "config.json"), []byte(`{"updatedAt":0}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123", "book.epub"), []byte("payload-bytes"), 0o644))
	return dir
}

func roundTrip(t *testing.T, compression Compression) {
	t.Helper()
	src := seedLibrary(t)
	out := filepath.Join(t.TempDir(), "export.tar")
	ctx := context.Background()

	exported, err := Export(ctx, src, out, compression)
	require.NoError(t, err)
	assert.Equal(t, 3, exported.Files)
	assert.Positive(t, exported.TotalSize)

	dest := t.TempDir()
	imported, err := Import(ctx, out, dest)
	require.NoError(t, err)
	assert.Equal(t, exported.Files, imported.Files)

	got, err := os.ReadFile(filepath.Join(dest, "abc123", "book.epub"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload-bytes"), got)

	manifest, err := os.ReadFile(filepath.Join(dest, "library.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(manifest))
}

func TestRoundTripPlain(t *testing.T) { roundTrip(t, None) }
func TestRoundTripGzip(t *testing.T)  { roundTrip(t, Gzip) }
func TestRoundTripZstd(t *testing.T)  { roundTrip(t, Zstd) }

func TestImportRejectsTraversal(t *testing.T) {
	// Hand-build an archive with an escaping entry name.
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "ok.txt"), []byte("x"), 0o644))
	out := filepath.Join(t.TempDir(), "a.tar")
	_, err := Export(context.Background(), src, out, None)
	require.NoError(t, err)

	// safeJoin is the guard Import relies on.
	_, err = safeJoin("/dest", "../../etc/passwd")
	assert.Error(t, err)

	_, err = safeJoin("/dest", "inside/ok.txt")
	assert.NoError(t, err)
}

func TestImportMissingArchive(t *testing.T) {
	_, err := Import(context.Background(), filepath.Join(t.TempDir(), "nope.tar"), t.TempDir())
	assert.Error(t, err)
}
