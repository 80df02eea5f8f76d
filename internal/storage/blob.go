package storage

import (
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// BlobScheme prefixes every URL issued by a BlobRegistry.
const BlobScheme = "blob:"

// Blob is one registered in-memory object.
type Blob struct {
	Data        []byte
	ContentType string
}

// BlobRegistry issues caller-revocable in-memory object URLs. The
// registry never expires entries on its own: whoever created a blob is
// responsible for revoking it once it is no longer displayed.
type BlobRegistry struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewBlobRegistry creates an empty registry.
func NewBlobRegistry() *BlobRegistry {
	return &BlobRegistry{blobs: make(map[string]Blob)}
}

// Create registers data and returns its blob URL. Content type is
// sniffed from the payload.
func (r *BlobRegistry) Create(data []byte) string {
	id := uuid.NewString()
	blob := Blob{
		Data:        data,
		ContentType: mimetype.Detect(data).String(),
	}

	r.mu.Lock()
	r.blobs[id] = blob
	r.mu.Unlock()

	return BlobScheme + id
}

// Get looks up a blob by URL or bare ID.
func (r *BlobRegistry) Get(url string) (Blob, bool) {
	id := strings.TrimPrefix(url, BlobScheme)

	r.mu.RLock()
	blob, ok := r.blobs[id]
	r.mu.RUnlock()
	return blob, ok
}

// Revoke releases a blob. Revoking an unknown URL is a no-op.
func (r *BlobRegistry) Revoke(url string) {
	id := strings.TrimPrefix(url, BlobScheme)

	r.mu.Lock()
	delete(r.blobs, id)
	r.mu.Unlock()
}

// Len reports how many blobs are live.
func (r *BlobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
