package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParsesBestMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "The Time Machine", r.URL.Query().Get("title"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"docs":[{"title":"The Time Machine","author_name":["H. G. Wells"],"first_publish_year":1895,"cover_i":12345}]}`))
	}))
	defer ts.Close()

	ol := NewOpenLibrary(NewClient(DefaultOptions()))
	ol.baseURL = ts.URL

	meta, err := ol.Search(context.Background(), "The Time Machine", "H. G. Wells")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "The Time Machine", meta.Title)
	assert.Equal(t, "H. G. Wells", meta.Author)
	assert.Equal(t, 1895, meta.FirstYear)
	assert.Contains(t, meta.CoverURL, "12345")
}

func TestSearchNoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	defer ts.Close()

	ol := NewOpenLibrary(NewClient(DefaultOptions()))
	ol.baseURL = ts.URL

	meta, err := ol.Search(context.Background(), "does not exist", "")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestSearchServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	opts := DefaultOptions()
	opts.Retries = 0
	ol := NewOpenLibrary(NewClient(opts))
	ol.baseURL = ts.URL

	_, err := ol.Search(context.Background(), "x", "")
	assert.Error(t, err)
}

func TestDownloadCover(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	ol := NewOpenLibrary(NewClient(DefaultOptions()))

	data, err := ol.DownloadCover(context.Background(), ts.URL+"/b/id/1-L.jpg")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}
