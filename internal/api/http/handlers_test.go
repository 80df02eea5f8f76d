package http

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillreader/backend/internal/infrastructure/logging"
	"github.com/quillreader/backend/internal/library"
	"github.com/quillreader/backend/internal/shared/paths"
	"github.com/quillreader/backend/internal/storage"
	"github.com/quillreader/backend/internal/storage/native"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	base := t.TempDir()
	resolver := paths.NewResolver(paths.Roots{
		Settings: filepath.Join(base, "settings"),
		Data:     filepath.Join(base, "data"),
		Cache:    filepath.Join(base, "cache"),
		Log:      filepath.Join(base, "log"),
		Temp:     filepath.Join(base, "tmp"),
	})
	blobs := storage.NewBlobRegistry()
	backend := native.New(resolver, blobs)
	require.NoError(t, backend.EnsureRoots())

	log := logging.NewNop()
	lib := library.NewService(backend, log)
	h := NewHandlers(backend, resolver, blobs, lib, nil, log, nil, "test")

	r := gin.New()
	h.Register(r)
	return r
}

func do(r *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	r := testRouter(t)

	w := do(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "native", body["backend"])
}

func TestFileRoundTrip(t *testing.T) {
	r := testRouter(t)

	w := do(r, http.MethodHead, "/files/settings/prefs.json", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/files/settings/prefs.json", []byte(`{"theme":"dark"}`))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodHead, "/files/settings/prefs.json", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/files/settings/prefs.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"theme":"dark"}`, w.Body.String())

	w = do(r, http.MethodDelete, "/files/settings/prefs.json", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/files/settings/prefs.json", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadCategory(t *testing.T) {
	r := testRouter(t)

	w := do(r, http.MethodGet, "/files/bogus/a.txt", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirOperations(t *testing.T) {
	r := testRouter(t)

	w := do(r, http.MethodPost, "/dirs/data/nested/deep?recursive=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPut, "/files/data/nested/deep/a.txt", []byte("a"))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/dirs/data/nested/deep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])

	// Non-empty without recursive fails.
	w = do(r, http.MethodDelete, "/dirs/data/nested/deep", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(r, http.MethodDelete, "/dirs/data/nested?recursive=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBlobLifecycle(t *testing.T) {
	r := testRouter(t)

	w := do(r, http.MethodPut, "/files/cache/img.bin", []byte("\x89PNG\r\n\x1a\nrest"))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/blobs/cache/img.bin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	url := decode(t, w)["url"].(string)
	require.NotEmpty(t, url)

	id := url[len(storage.BlobScheme):]
	w = do(r, http.MethodGet, "/blob/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\nrest"), w.Body.Bytes())

	w = do(r, http.MethodDelete, "/blob/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/blob/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlobForMissingFile(t *testing.T) {
	r := testRouter(t)

	w := do(r, http.MethodPost, "/blobs/cache/missing.bin", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func importBook(t *testing.T, r *gin.Engine, filename string, payload []byte) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/library/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	return decode(t, w)["book"].(map[string]any)
}

func TestLibraryFlow(t *testing.T) {
	r := testRouter(t)

	w := do(r, http.MethodGet, "/library", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	book := importBook(t, r, "moby_dick.txt", []byte("Call me Ishmael."))
	hash := book["hash"].(string)
	assert.Equal(t, "moby dick", book["title"])

	w = do(r, http.MethodGet, "/library", nil)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = do(r, http.MethodGet, "/library/"+hash, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cfg, err := sonic.Marshal(library.Config{Location: "pos-1", Percentage: 0.5, UpdatedAt: 99})
	require.NoError(t, err)
	w = do(r, http.MethodPut, "/library/"+hash+"/config", cfg)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/library/"+hash+"/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "pos-1", got["location"])
	assert.Equal(t, float64(99), got["updatedAt"])

	w = do(r, http.MethodPost, "/library/scan", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodDelete, "/library/"+hash, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/library/"+hash, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookPayloadLandsUnderLocalBooks(t *testing.T) {
	r := testRouter(t)

	book := importBook(t, r, "b.txt", []byte("payload"))
	hash := book["hash"].(string)
	file := book["file"].(string)

	w := do(r, http.MethodHead, "/files/books/"+hash+"/"+file, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRemoteMetadataDisabled(t *testing.T) {
	r := testRouter(t)

	book := importBook(t, r, "b.txt", []byte("payload"))
	hash := book["hash"].(string)

	w := do(r, http.MethodGet, "/library/"+hash+"/remote", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(r, http.MethodPost, "/library/"+hash+"/cover", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadBodyRejectsOversize(t *testing.T) {
	data, ok, err := readBody(bytes.NewReader([]byte("12345")), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("12345"), data)

	_, ok, err = readBody(bytes.NewReader([]byte("123456")), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveURL(t *testing.T) {
	r := testRouter(t)

	w := do(r, http.MethodGet, "/url?path=/tmp/a.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "file:///tmp/a.txt", decode(t, w)["url"])
}
