package library

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/blake2b"
)

// Well-known file names inside a book's directory and at the books root.
const (
	ManifestFile = "library.json"
	ConfigFile   = "config.json"
	CoverFile    = "cover.png"
)

// Book is one entry in the library manifest. Hash is the BLAKE2b-256 of
// the book payload and doubles as the storage directory name.
type Book struct {
	Hash     string    `json:"hash"`
	Title    string    `json:"title"`
	Author   string    `json:"author,omitempty"`
	Format   string    `json:"format"`
	File     string    `json:"file"`
	HasCover bool      `json:"has_cover"`
	Preview  string    `json:"preview,omitempty"`
	Size     int64     `json:"size"`
	AddedAt  time.Time `json:"added_at"`
}

// Manifest is the persisted library index, stored as library.json at the
// books root.
type Manifest struct {
	Version   int             `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Books     map[string]Book `json:"books"`
}

func newManifest() Manifest {
	return Manifest{Version: 1, Books: make(map[string]Book)}
}

// Config is the per-book reading state, stored as config.json next to the
// book payload. Location is the rendering library's position token and is
// opaque to this layer.
type Config struct {
	Location   string  `json:"location,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	UpdatedAt  int64   `json:"updatedAt"`
}

// HashOf computes the content-hash identifier for a book payload.
func HashOf(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var titlePolicy = bluemonday.StrictPolicy()

const maxSafeTitle = 80

// SafeTitle turns a display title into a filename-safe stem: markup is
// stripped, hostile runes replaced, length bounded. Empty titles become
// "untitled" so the payload always has a name.
func SafeTitle(title string) string {
	clean := titlePolicy.Sanitize(title)

	var sb strings.Builder
	for _, r := range clean {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\x00':
			sb.WriteRune('_')
		case '\n', '\r', '\t':
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}

	safe := strings.TrimSpace(sb.String())
	safe = strings.Trim(safe, ".")
	if runes := []rune(safe); len(runes) > maxSafeTitle {
		safe = strings.TrimSpace(string(runes[:maxSafeTitle]))
	}
	if safe == "" {
		return "untitled"
	}
	return safe
}
