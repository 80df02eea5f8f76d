// Package web implements the storage backend for browser-hosted runs.
//
// The browser grants no real filesystem, so the backend emulates one on a
// single bbolt database, the way the web build of the reader emulates
// files over IndexedDB. Files and directories live in separate buckets
// keyed by absolute virtual slash paths; directory semantics (parents
// required, non-recursive rmdir needs empty) match the native backend so
// the contract holds on both.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	bolt "go.etcd.io/bbolt"

	"github.com/quillreader/backend/internal/shared/paths"
	"github.com/quillreader/backend/internal/storage"
)

var (
	bucketFiles = []byte("files")
	bucketDirs  = []byte("dirs")
)

// Backend implements storage.Backend over a bbolt store.
type Backend struct {
	db       *bolt.DB
	resolver *paths.Resolver
	blobs    *storage.BlobRegistry
}

// Open creates or opens the emulated store at dbPath.
func Open(dbPath string, resolver *paths.Resolver, blobs *storage.BlobRegistry) (*Backend, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", errors.Join(storage.ErrIO, err))
	}

	b := &Backend{db: db, resolver: resolver, blobs: blobs}
	if err := b.init(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// init creates the buckets and the category root directories.
func (b *Backend) init() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketFiles, bucketDirs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Join(storage.ErrIO, err)
			}
		}

		dirs := tx.Bucket(bucketDirs)
		if err := dirs.Put([]byte("/"), []byte{1}); err != nil {
			return errors.Join(storage.ErrIO, err)
		}
		for _, cat := range []paths.Category{paths.Settings, paths.Data, paths.Cache, paths.Log, paths.Books, paths.None} {
			root := b.vpath("", cat)
			if err := dirs.Put([]byte(root), []byte{1}); err != nil {
				return errors.Join(storage.ErrIO, err)
			}
		}
		return nil
	})
}

// Kind reports paths.KindWeb.
func (b *Backend) Kind() paths.Kind { return paths.KindWeb }

// vpath resolves to an absolute virtual slash path. Already-absolute
// paths are self-contained and only cleaned.
func (b *Backend) vpath(relPath string, category paths.Category) string {
	if strings.HasPrefix(relPath, "/") {
		return path.Clean(relPath)
	}
	loc := b.resolver.Resolve(relPath, category)
	return path.Join(loc.Root, loc.RelativePath)
}

// Exists reports whether a file or directory exists at the path.
func (b *Backend) Exists(_ context.Context, relPath string, category paths.Category) bool {
	key := []byte(b.vpath(relPath, category))
	found := false
	_ = b.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketFiles).Get(key) != nil || tx.Bucket(bucketDirs).Get(key) != nil
		return nil
	})
	return found
}

// ReadFile returns the stored bytes for a file.
func (b *Backend) ReadFile(_ context.Context, relPath string, category paths.Category) ([]byte, error) {
	key := b.vpath(relPath, category)
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketFiles).Get([]byte(key))
		if v == nil {
			return fmt.Errorf("read %s: %w", key, storage.ErrNotFound)
		}
		data = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, err
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

// WriteFile stores data at the path. The parent directory must exist.
func (b *Backend) WriteFile(_ context.Context, relPath string, category paths.Category, data []byte) error {
	key := b.vpath(relPath, category)
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketDirs).Get([]byte(path.Dir(key))) == nil {
			return fmt.Errorf("write %s: parent directory missing: %w", key, storage.ErrNotFound)
		}
		if err := tx.Bucket(bucketFiles).Put([]byte(key), data); err != nil {
			return errors.Join(storage.ErrIO, err)
		}
		return nil
	})
}

// RemoveFile deletes a file; missing files fail with ErrNotFound.
func (b *Backend) RemoveFile(_ context.Context, relPath string, category paths.Category) error {
	key := b.vpath(relPath, category)
	return b.db.Update(func(tx *bolt.Tx) error {
		files := tx.Bucket(bucketFiles)
		if files.Get([]byte(key)) == nil {
			return fmt.Errorf("remove %s: %w", key, storage.ErrNotFound)
		}
		if err := files.Delete([]byte(key)); err != nil {
			return errors.Join(storage.ErrIO, err)
		}
		return nil
	})
}

// CreateDir creates a directory entry, the full chain when recursive.
func (b *Backend) CreateDir(_ context.Context, relPath string, category paths.Category, recursive bool) error {
	key := b.vpath(relPath, category)
	return b.db.Update(func(tx *bolt.Tx) error {
		dirs := tx.Bucket(bucketDirs)

		if dirs.Get([]byte(key)) != nil {
			if recursive {
				return nil
			}
			return fmt.Errorf("mkdir %s: already exists: %w", key, storage.ErrIO)
		}

		if recursive {
			for _, p := range chain(key) {
				if err := dirs.Put([]byte(p), []byte{1}); err != nil {
					return errors.Join(storage.ErrIO, err)
				}
			}
			return nil
		}

		if dirs.Get([]byte(path.Dir(key))) == nil {
			return fmt.Errorf("mkdir %s: parent directory missing: %w", key, storage.ErrNotFound)
		}
		if err := dirs.Put([]byte(key), []byte{1}); err != nil {
			return errors.Join(storage.ErrIO, err)
		}
		return nil
	})
}

// chain returns every prefix directory of key, shallow to deep.
func chain(key string) []string {
	var out []string
	cur := key
	for cur != "/" && cur != "." {
		out = append(out, cur)
		cur = path.Dir(cur)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// RemoveDir deletes a directory; without recursive it fails on non-empty.
func (b *Backend) RemoveDir(_ context.Context, relPath string, category paths.Category, recursive bool) error {
	key := b.vpath(relPath, category)
	prefix := key + "/"
	return b.db.Update(func(tx *bolt.Tx) error {
		dirs := tx.Bucket(bucketDirs)
		files := tx.Bucket(bucketFiles)

		if dirs.Get([]byte(key)) == nil {
			return fmt.Errorf("rmdir %s: %w", key, storage.ErrNotFound)
		}

		if !recursive {
			if hasPrefixKey(dirs, prefix) || hasPrefixKey(files, prefix) {
				return fmt.Errorf("rmdir %s: directory not empty: %w", key, storage.ErrIO)
			}
			return cleanupErr(dirs.Delete([]byte(key)))
		}

		for _, bucket := range []*bolt.Bucket{dirs, files} {
			if err := deletePrefix(bucket, prefix); err != nil {
				return err
			}
		}
		return cleanupErr(dirs.Delete([]byte(key)))
	})
}

func cleanupErr(err error) error {
	if err != nil {
		return errors.Join(storage.ErrIO, err)
	}
	return nil
}

func hasPrefixKey(bucket *bolt.Bucket, prefix string) bool {
	c := bucket.Cursor()
	k, _ := c.Seek([]byte(prefix))
	return k != nil && strings.HasPrefix(string(k), prefix)
}

func deletePrefix(bucket *bolt.Bucket, prefix string) error {
	c := bucket.Cursor()
	for k, _ := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Seek([]byte(prefix)) {
		if err := bucket.Delete(k); err != nil {
			return errors.Join(storage.ErrIO, err)
		}
	}
	return nil
}

// ReadDir lists the immediate children of a directory.
func (b *Backend) ReadDir(_ context.Context, relPath string, category paths.Category) ([]storage.Entry, error) {
	key := b.vpath(relPath, category)
	prefix := key + "/"
	if key == "/" {
		prefix = "/"
	}

	entries := []storage.Entry{}
	err := b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketDirs).Get([]byte(key)) == nil {
			return fmt.Errorf("readdir %s: %w", key, storage.ErrNotFound)
		}

		collect := func(bucket *bolt.Bucket, isDir bool) {
			c := bucket.Cursor()
			for k, _ := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
				child := string(k)
				if path.Dir(child) != key {
					continue
				}
				entries = append(entries, storage.Entry{Name: path.Base(child), IsDir: isDir})
			}
		}
		collect(tx.Bucket(bucketDirs), true)
		collect(tx.Bucket(bucketFiles), false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Glob matches a doublestar pattern against paths under the category root.
func (b *Backend) Glob(_ context.Context, pattern string, category paths.Category) ([]string, error) {
	root := b.vpath("", category)
	prefix := root + "/"

	var matches []string
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketFiles).Cursor()
		for k, _ := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			rel := strings.TrimPrefix(string(k), prefix)
			ok, err := doublestar.Match(pattern, rel)
			if err != nil {
				return errors.Join(storage.ErrIO, err)
			}
			if ok {
				matches = append(matches, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// CopyFile copies an already-resolved virtual source path into the
// category-resolved destination.
func (b *Backend) CopyFile(ctx context.Context, srcPath, dstRelPath string, category paths.Category) error {
	data, err := b.ReadFile(ctx, srcPath, paths.None)
	if err != nil {
		return err
	}
	return b.WriteFile(ctx, dstRelPath, category, data)
}

// URL converts a virtual path to the app's display scheme. Fully-qualified
// URLs pass through unchanged.
func (b *Backend) URL(p string) string {
	if strings.Contains(p, "://") || strings.HasPrefix(p, storage.BlobScheme) {
		return p
	}
	return "app://local" + path.Clean("/"+p)
}

// BlobURL loads the file and registers it as an in-memory blob.
func (b *Backend) BlobURL(ctx context.Context, relPath string, category paths.Category) (string, error) {
	data, err := b.ReadFile(ctx, relPath, category)
	if err != nil {
		return "", err
	}
	return b.blobs.Create(data), nil
}

// Close closes the underlying store.
func (b *Backend) Close() error {
	return b.db.Close()
}
