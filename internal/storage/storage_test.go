package storage

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapOSTaxonomy(t *testing.T) {
	assert.NoError(t, WrapOS(nil))
	assert.ErrorIs(t, WrapOS(fs.ErrNotExist), ErrNotFound)
	assert.ErrorIs(t, WrapOS(fs.ErrPermission), ErrPermission)
	assert.ErrorIs(t, WrapOS(errors.New("disk on fire")), ErrIO)
}

func TestWrapOSKeepsCause(t *testing.T) {
	cause := &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}
	wrapped := WrapOS(cause)

	assert.ErrorIs(t, wrapped, ErrNotFound)
	var pathErr *fs.PathError
	assert.ErrorAs(t, wrapped, &pathErr)
}

func TestBlobRegistryRoundTrip(t *testing.T) {
	reg := NewBlobRegistry()

	url := reg.Create([]byte("%PDF-1.7 payload"))
	require.True(t, len(url) > len(BlobScheme))
	assert.Contains(t, url, BlobScheme)

	blob, ok := reg.Get(url)
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-1.7 payload"), blob.Data)
	assert.NotEmpty(t, blob.ContentType)
}

func TestBlobRegistryRevoke(t *testing.T) {
	reg := NewBlobRegistry()

	url := reg.Create([]byte("bytes"))
	assert.Equal(t, 1, reg.Len())

	reg.Revoke(url)
	_, ok := reg.Get(url)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())

	// Revoking again is a no-op.
	reg.Revoke(url)
}

func TestDecodeTextUTF8(t *testing.T) {
	assert.Equal(t, "hello", DecodeText([]byte("hello")))
}

func TestDecodeTextUTF8BOM(t *testing.T) {
	assert.Equal(t, "hello", DecodeText([]byte{0xEF, 0xBB, 0xBF, 'h', 'e', 'l', 'l', 'o'}))
}

func TestDecodeTextUTF16LE(t *testing.T) {
	data := []byte{0xFF, 0xFE, 'h', 0, 'i', 0}
	assert.Equal(t, "hi", DecodeText(data))
}

func TestDecodeTextLatin1(t *testing.T) {
	// "café" in ISO-8859-1; 0xE9 is invalid UTF-8 so detection kicks in.
	data := []byte{'c', 'a', 'f', 0xE9, ' ', 'a', 'u', ' ', 'l', 'a', 'i', 't'}
	out := DecodeText(data)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "caf")
}
