// Package http exposes the storage backend and library over a REST API
// consumed by the reader UI.
package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quillreader/backend/internal/fetch"
	"github.com/quillreader/backend/internal/infrastructure/logging"
	"github.com/quillreader/backend/internal/infrastructure/monitoring"
	"github.com/quillreader/backend/internal/library"
	"github.com/quillreader/backend/internal/library/archive"
	"github.com/quillreader/backend/internal/shared/paths"
	"github.com/quillreader/backend/internal/storage"
)

// maxImportSize bounds uploaded book payloads.
const maxImportSize = 512 << 20

// Handlers contains all HTTP handlers.
type Handlers struct {
	backend  storage.Backend
	resolver *paths.Resolver
	blobs    *storage.BlobRegistry
	library  *library.Service
	remote   *fetch.OpenLibrary
	log      *logging.Logger
	metrics  *monitoring.Metrics
	version  string
}

// NewHandlers creates a new handler set. remote and metrics may be nil.
func NewHandlers(
	backend storage.Backend,
	resolver *paths.Resolver,
	blobs *storage.BlobRegistry,
	lib *library.Service,
	remote *fetch.OpenLibrary,
	log *logging.Logger,
	metrics *monitoring.Metrics,
	version string,
) *Handlers {
	return &Handlers{
		backend:  backend,
		resolver: resolver,
		blobs:    blobs,
		library:  lib,
		remote:   remote,
		log:      log,
		metrics:  metrics,
		version:  version,
	}
}

// Root handles the bare health probe.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "quillreader",
		"version": h.version,
	})
}

// Health handles the detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"backend": string(h.backend.Kind()),
		"books":   h.library.Count(c.Request.Context()),
		"blobs":   h.blobs.Len(),
	}
	if h.metrics != nil {
		resp["uptime_seconds"] = h.metrics.Uptime().Seconds()
	}
	c.JSON(http.StatusOK, resp)
}

// category validates the :category route parameter.
func category(c *gin.Context) (paths.Category, bool) {
	cat := paths.Category(c.Param("category"))
	switch cat {
	case paths.Settings, paths.Data, paths.Cache, paths.Log, paths.Books, paths.None:
		return cat, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + c.Param("category")})
	return "", false
}

// relPath returns the *path route parameter without its leading slash.
func relPath(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("path"), "/")
}

// fail maps a storage or library error to an HTTP response.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, library.ErrNoSuchBook):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrUnsupported):
		status = http.StatusNotImplemented
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatFile answers existence probes. Exists never errors, so this is
// always 200 or 404.
func (h *Handlers) StatFile(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	if !h.backend.Exists(c.Request.Context(), relPath(c), cat) {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

// ReadFile serves file contents with a sniffed content type.
func (h *Handlers) ReadFile(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	data, err := h.backend.ReadFile(c.Request.Context(), relPath(c), cat)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

// readBody reads at most limit bytes; oversize reports ok=false.
func readBody(r io.Reader, limit int64) (data []byte, ok bool, err error) {
	data, err = io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return nil, false, nil
	}
	return data, true, nil
}

// WriteFile stores the request body as the file contents.
func (h *Handlers) WriteFile(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	data, within, err := readBody(c.Request.Body, maxImportSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}
	if !within {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
		return
	}
	if err := h.backend.WriteFile(c.Request.Context(), relPath(c), cat, data); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"written": len(data)})
}

// RemoveFile deletes a file.
func (h *Handlers) RemoveFile(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	if err := h.backend.RemoveFile(c.Request.Context(), relPath(c), cat); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": relPath(c)})
}

// ReadDir lists directory entries.
func (h *Handlers) ReadDir(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	entries, err := h.backend.ReadDir(c.Request.Context(), relPath(c), cat)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// CreateDir creates a directory; ?recursive=true creates the full chain.
func (h *Handlers) CreateDir(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	recursive := c.Query("recursive") == "true"
	if err := h.backend.CreateDir(c.Request.Context(), relPath(c), cat, recursive); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": relPath(c)})
}

// RemoveDir deletes a directory; ?recursive=true removes contents too.
func (h *Handlers) RemoveDir(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	recursive := c.Query("recursive") == "true"
	if err := h.backend.RemoveDir(c.Request.Context(), relPath(c), cat, recursive); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": relPath(c)})
}

// Glob matches a pattern against a category root.
func (h *Handlers) Glob(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	pattern := c.Query("pattern")
	if pattern == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pattern is required"})
		return
	}
	matches, err := h.backend.Glob(c.Request.Context(), pattern, cat)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches, "count": len(matches)})
}

type copyRequest struct {
	Src      string `json:"src" binding:"required"`
	Dst      string `json:"dst" binding:"required"`
	Category string `json:"category" binding:"required"`
}

// CopyFile copies a source file into a category-resolved destination.
func (h *Handlers) CopyFile(c *gin.Context) {
	var req copyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.backend.CopyFile(c.Request.Context(), req.Src, req.Dst, paths.Category(req.Category)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"copied": req.Dst})
}

// ResolveURL converts a path into a displayable URL. Total, never fails.
func (h *Handlers) ResolveURL(c *gin.Context) {
	p := c.Query("path")
	c.JSON(http.StatusOK, gin.H{"url": h.backend.URL(p)})
}

// CreateBlob loads a stored file into memory and returns its blob URL.
// The client owns the token and must revoke it when done.
func (h *Handlers) CreateBlob(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	url, err := h.backend.BlobURL(c.Request.Context(), relPath(c), cat)
	if err != nil {
		fail(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.BlobsLive.Set(float64(h.blobs.Len()))
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ServeBlob returns the bytes behind a blob URL token.
func (h *Handlers) ServeBlob(c *gin.Context) {
	blob, ok := h.blobs.Get(storage.BlobScheme + c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown blob"})
		return
	}
	c.Data(http.StatusOK, blob.ContentType, blob.Data)
}

// RevokeBlob releases a blob URL and its bytes.
func (h *Handlers) RevokeBlob(c *gin.Context) {
	h.blobs.Revoke(storage.BlobScheme + c.Param("id"))
	if h.metrics != nil {
		h.metrics.BlobsLive.Set(float64(h.blobs.Len()))
	}
	c.JSON(http.StatusOK, gin.H{"revoked": c.Param("id")})
}

// ListBooks returns the library, newest first.
func (h *Handlers) ListBooks(c *gin.Context) {
	books, err := h.library.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.LibraryBooks.Set(float64(len(books)))
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// GetBook returns one book with its cover URL when available.
func (h *Handlers) GetBook(c *gin.Context) {
	hash := c.Param("hash")
	book, err := h.library.Get(c.Request.Context(), hash)
	if err != nil {
		fail(c, err)
		return
	}
	resp := gin.H{"book": book}
	if book.HasCover {
		resp["cover_url"] = h.library.CoverURL(c.Request.Context(), hash)
	}
	c.JSON(http.StatusOK, resp)
}

// ImportBook accepts a multipart upload under the "file" field.
func (h *Handlers) ImportBook(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	if fileHeader.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read upload: " + err.Error()})
		return
	}

	book, err := h.library.Import(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		fail(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.LibraryBooks.Set(float64(h.library.Count(c.Request.Context())))
	}
	c.JSON(http.StatusCreated, gin.H{"book": book})
}

// RemoveBook deletes a book and its files.
func (h *Handlers) RemoveBook(c *gin.Context) {
	hash := c.Param("hash")
	if err := h.library.Remove(c.Request.Context(), hash); err != nil {
		fail(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.LibraryBooks.Set(float64(h.library.Count(c.Request.Context())))
	}
	c.JSON(http.StatusOK, gin.H{"removed": hash})
}

// GetBookConfig returns a book's reading state.
func (h *Handlers) GetBookConfig(c *gin.Context) {
	cfg, err := h.library.GetConfig(c.Request.Context(), c.Param("hash"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SetBookConfig stores a book's reading state.
func (h *Handlers) SetBookConfig(c *gin.Context) {
	var cfg library.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.library.SetConfig(c.Request.Context(), c.Param("hash"), cfg); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// BookCover serves the stored cover image.
func (h *Handlers) BookCover(c *gin.Context) {
	data, err := h.library.Cover(c.Request.Context(), c.Param("hash"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

// FetchRemoteCover looks the book up on Open Library, downloads the best
// match's cover and stores it as the book's cover image.
func (h *Handlers) FetchRemoteCover(c *gin.Context) {
	if h.remote == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "remote metadata fetch is disabled"})
		return
	}
	hash := c.Param("hash")
	book, err := h.library.Get(c.Request.Context(), hash)
	if err != nil {
		fail(c, err)
		return
	}

	meta, err := h.remote.Search(c.Request.Context(), book.Title, book.Author)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if meta == nil || meta.CoverURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cover found"})
		return
	}

	data, err := h.remote.DownloadCover(c.Request.Context(), meta.CoverURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if err := h.library.SetCover(c.Request.Context(), hash, data); err != nil {
		fail(c, err)
		return
	}
	h.log.Info("remote cover stored",
		zap.String("hash", hash), zap.String("source", meta.CoverURL))
	c.JSON(http.StatusOK, gin.H{
		"cover_url": h.library.CoverURL(c.Request.Context(), hash),
		"bytes":     len(data),
	})
}

// ScanLibrary reconciles the books directory against the manifest.
func (h *Handlers) ScanLibrary(c *gin.Context) {
	orphans, missing, err := h.library.Scan(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orphans": orphans, "missing": missing})
}

// RemoteMetadata looks a book up on Open Library.
func (h *Handlers) RemoteMetadata(c *gin.Context) {
	if h.remote == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "remote metadata fetch is disabled"})
		return
	}
	book, err := h.library.Get(c.Request.Context(), c.Param("hash"))
	if err != nil {
		fail(c, err)
		return
	}
	meta, err := h.remote.Search(c.Request.Context(), book.Title, book.Author)
	if err != nil {
		h.log.Warn("remote metadata lookup failed",
			zap.String("hash", book.Hash), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no match found"})
		return
	}
	c.JSON(http.StatusOK, meta)
}

type exportRequest struct {
	Path        string `json:"path" binding:"required"`
	Compression string `json:"compression"`
}

// ExportLibrary archives the books directory to a host path. Only the
// native backend has a host filesystem to archive.
func (h *Handlers) ExportLibrary(c *gin.Context) {
	if h.backend.Kind() != paths.KindNative {
		fail(c, errors.Join(storage.ErrUnsupported, errors.New("export requires the native backend")))
		return
	}
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	compression := archive.Compression(req.Compression)
	if compression == "" {
		compression = archive.Gzip
	}

	booksRoot := h.resolver.Resolve("", paths.Books).Path()
	result, err := archive.Export(c.Request.Context(), booksRoot, req.Path, compression)
	if err != nil {
		fail(c, err)
		return
	}
	h.log.Info("library exported",
		zap.String("path", req.Path),
		zap.Int("files", result.Files),
		zap.Int64("bytes", result.TotalSize),
	)
	c.JSON(http.StatusOK, gin.H{"files": result.Files, "bytes": result.TotalSize})
}

type restoreRequest struct {
	Path string `json:"path" binding:"required"`
}

// RestoreLibrary unpacks an exported archive into the books directory.
func (h *Handlers) RestoreLibrary(c *gin.Context) {
	if h.backend.Kind() != paths.KindNative {
		fail(c, errors.Join(storage.ErrUnsupported, errors.New("restore requires the native backend")))
		return
	}
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booksRoot := h.resolver.Resolve("", paths.Books).Path()
	result, err := archive.Import(c.Request.Context(), req.Path, booksRoot)
	if err != nil {
		fail(c, err)
		return
	}
	h.log.Info("library restored",
		zap.String("path", req.Path),
		zap.Int("files", result.Files),
	)
	c.JSON(http.StatusOK, gin.H{"files": result.Files, "bytes": result.TotalSize})
}
