// Package library manages the book library on top of the storage backend:
// the library.json manifest, one directory per book hash holding the
// payload, cover and reading config.
package library

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/quillreader/backend/internal/infrastructure/logging"
	"github.com/quillreader/backend/internal/library/meta"
	"github.com/quillreader/backend/internal/shared/paths"
	"github.com/quillreader/backend/internal/storage"
)

// ErrNoSuchBook reports a hash absent from the manifest.
var ErrNoSuchBook = errors.New("library: no such book")

// Event describes a library change pushed to connected UIs.
type Event struct {
	Type string `json:"type"` // "imported", "removed", "config", "cover"
	Hash string `json:"hash"`
	Book *Book  `json:"book,omitempty"`
}

// Service owns the manifest and book directories. The storage backend
// provides no locking, so manifest read-modify-write cycles serialize on
// mu here.
type Service struct {
	backend storage.Backend
	log     *logging.Logger

	mu     sync.Mutex
	notify func(Event)
}

// NewService creates a library service over the active backend.
func NewService(backend storage.Backend, log *logging.Logger) *Service {
	return &Service{
		backend: backend,
		log:     log,
		notify:  func(Event) {},
	}
}

// OnChange registers the callback invoked after every library mutation.
// Must be set before the service starts taking requests.
func (s *Service) OnChange(fn func(Event)) {
	if fn != nil {
		s.notify = fn
	}
}

// List returns all books, newest first.
func (s *Service) List(ctx context.Context) ([]Book, error) {
	m, err := s.loadManifest(ctx)
	if err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(m.Books))
	for _, b := range m.Books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].AddedAt.After(books[j].AddedAt) })
	return books, nil
}

// Get returns one book by hash.
func (s *Service) Get(ctx context.Context, hash string) (Book, error) {
	m, err := s.loadManifest(ctx)
	if err != nil {
		return Book{}, err
	}
	b, ok := m.Books[hash]
	if !ok {
		return Book{}, fmt.Errorf("%s: %w", hash, ErrNoSuchBook)
	}
	return b, nil
}

// Import adds a book payload to the library. Re-importing identical
// content is a no-op returning the existing entry.
func (s *Service) Import(ctx context.Context, filename string, data []byte) (Book, error) {
	hash := HashOf(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadManifest(ctx)
	if err != nil {
		return Book{}, err
	}
	if existing, ok := m.Books[hash]; ok {
		s.log.Info("book already in library", zap.String("hash", hash))
		return existing, nil
	}

	info := meta.Extract(filename, data)
	book := Book{
		Hash:    hash,
		Title:   info.Title,
		Author:  info.Author,
		Format:  info.Format,
		File:    SafeTitle(info.Title) + "." + info.Format,
		Preview: info.Preview,
		Size:    int64(len(data)),
		AddedAt: time.Now().UTC(),
	}

	if err := s.backend.CreateDir(ctx, hash, paths.Books, true); err != nil {
		return Book{}, fmt.Errorf("create book dir: %w", err)
	}
	if err := s.backend.WriteFile(ctx, path.Join(hash, book.File), paths.Books, data); err != nil {
		return Book{}, fmt.Errorf("store payload: %w", err)
	}
	if len(info.Cover) > 0 {
		if err := s.backend.WriteFile(ctx, path.Join(hash, CoverFile), paths.Books, info.Cover); err != nil {
			s.log.Warn("cover not stored", zap.String("hash", hash), zap.Error(err))
		} else {
			book.HasCover = true
		}
	}
	if err := s.writeConfig(ctx, hash, Config{UpdatedAt: 0}); err != nil {
		return Book{}, err
	}

	m.Books[hash] = book
	if err := s.saveManifest(ctx, m); err != nil {
		return Book{}, err
	}

	s.log.Info("book imported",
		zap.String("hash", hash),
		zap.String("title", book.Title),
		zap.String("format", book.Format),
	)
	s.notify(Event{Type: "imported", Hash: hash, Book: &book})
	return book, nil
}

// Remove deletes a book's directory and manifest entry.
func (s *Service) Remove(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadManifest(ctx)
	if err != nil {
		return err
	}
	if _, ok := m.Books[hash]; !ok {
		return fmt.Errorf("%s: %w", hash, ErrNoSuchBook)
	}

	if err := s.backend.RemoveDir(ctx, hash, paths.Books, true); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("remove book dir: %w", err)
	}

	delete(m.Books, hash)
	if err := s.saveManifest(ctx, m); err != nil {
		return err
	}

	s.log.Info("book removed", zap.String("hash", hash))
	s.notify(Event{Type: "removed", Hash: hash})
	return nil
}

// GetConfig loads a book's reading config.
func (s *Service) GetConfig(ctx context.Context, hash string) (Config, error) {
	data, err := s.backend.ReadFile(ctx, path.Join(hash, ConfigFile), paths.Books)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// SetConfig stores a book's reading config. The book must exist.
func (s *Service) SetConfig(ctx context.Context, hash string, cfg Config) error {
	if _, err := s.Get(ctx, hash); err != nil {
		return err
	}
	if err := s.writeConfig(ctx, hash, cfg); err != nil {
		return err
	}
	s.notify(Event{Type: "config", Hash: hash})
	return nil
}

// SetCover stores a cover image for an existing book and marks it in the
// manifest. Used when a cover arrives after import, e.g. from a remote
// metadata lookup.
func (s *Service) SetCover(ctx context.Context, hash string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadManifest(ctx)
	if err != nil {
		return err
	}
	book, ok := m.Books[hash]
	if !ok {
		return fmt.Errorf("%s: %w", hash, ErrNoSuchBook)
	}

	if err := s.backend.WriteFile(ctx, path.Join(hash, CoverFile), paths.Books, data); err != nil {
		return fmt.Errorf("store cover: %w", err)
	}
	book.HasCover = true
	m.Books[hash] = book
	if err := s.saveManifest(ctx, m); err != nil {
		return err
	}

	s.log.Info("cover stored", zap.String("hash", hash), zap.Int("bytes", len(data)))
	s.notify(Event{Type: "cover", Hash: hash, Book: &book})
	return nil
}

// Cover returns the stored cover image bytes.
func (s *Service) Cover(ctx context.Context, hash string) ([]byte, error) {
	return s.backend.ReadFile(ctx, path.Join(hash, CoverFile), paths.Books)
}

// CoverURL returns a displayable URL for the cover, empty when the book
// has none. Errors degrade to empty per the URL-resolution policy.
func (s *Service) CoverURL(ctx context.Context, hash string) string {
	url, err := s.backend.BlobURL(ctx, path.Join(hash, CoverFile), paths.Books)
	if err != nil {
		return ""
	}
	return url
}

// Scan reconciles the books root against the manifest. Orphans are
// directories with no manifest entry; missing are manifest entries with
// no directory. Neither is deleted, only reported.
func (s *Service) Scan(ctx context.Context) (orphans, missing []string, err error) {
	m, err := s.loadManifest(ctx)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.backend.ReadDir(ctx, "", paths.Books)
	if err != nil {
		return nil, nil, err
	}

	onDisk := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir {
			onDisk[e.Name] = true
		}
	}

	for name := range onDisk {
		if _, ok := m.Books[name]; !ok {
			orphans = append(orphans, name)
		}
	}
	for hash := range m.Books {
		if !onDisk[hash] {
			missing = append(missing, hash)
		}
	}
	sort.Strings(orphans)
	sort.Strings(missing)
	return orphans, missing, nil
}

// Count returns the number of books in the manifest.
func (s *Service) Count(ctx context.Context) int {
	m, err := s.loadManifest(ctx)
	if err != nil {
		return 0
	}
	return len(m.Books)
}

func (s *Service) loadManifest(ctx context.Context) (Manifest, error) {
	data, err := s.backend.ReadFile(ctx, ManifestFile, paths.Books)
	if errors.Is(err, storage.ErrNotFound) {
		return newManifest(), nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("load manifest: %w", err)
	}

	var m Manifest
	if err := sonic.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Books == nil {
		m.Books = make(map[string]Book)
	}
	return m, nil
}

func (s *Service) saveManifest(ctx context.Context, m Manifest) error {
	m.UpdatedAt = time.Now().UTC()
	data, err := sonic.ConfigDefault.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := s.backend.WriteFile(ctx, ManifestFile, paths.Books, data); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

func (s *Service) writeConfig(ctx context.Context, hash string, cfg Config) error {
	data, err := sonic.ConfigDefault.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := s.backend.WriteFile(ctx, path.Join(hash, ConfigFile), paths.Books, data); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
