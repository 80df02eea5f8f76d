// Package meta extracts display metadata from book payloads at import
// time: title, author and embedded cover for EPUB, filename-derived
// fallbacks for everything else. Extraction is best effort; a book with
// unreadable metadata still imports under its filename.
package meta

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/quillreader/backend/internal/storage"
)

// Supported book formats.
const (
	FormatEPUB = "epub"
	FormatPDF  = "pdf"
	FormatTXT  = "txt"
)

// Info is the metadata pulled from one book payload.
type Info struct {
	Title  string
	Author string
	Format string
	// Cover holds the embedded cover image bytes, nil when none found.
	Cover []byte
	// Preview is a short text excerpt, only populated for plain text.
	Preview string
}

// Extract sniffs the payload format and pulls whatever metadata it
// carries. filename supplies the fallback title.
func Extract(filename string, data []byte) Info {
	info := Info{
		Title:  titleFromFilename(filename),
		Format: formatOf(filename, data),
	}

	switch info.Format {
	case FormatEPUB:
		if epub, err := extractEPUB(data); err == nil {
			if epub.Title != "" {
				info.Title = epub.Title
			}
			info.Author = epub.Author
			info.Cover = epub.Cover
		}
	case FormatTXT:
		info.Preview = textPreview(data)
	}
	return info
}

// formatOf detects the book format from content, falling back to the
// file extension for text-like payloads mimetype cannot pin down.
func formatOf(filename string, data []byte) string {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/epub+zip"):
		return FormatEPUB
	case mt.Is("application/pdf"):
		return FormatPDF
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".epub":
		return FormatEPUB
	case ".pdf":
		return FormatPDF
	default:
		return FormatTXT
	}
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", ".", " ").Replace(base)
	return strings.TrimSpace(base)
}

const previewRunes = 200

// textPreview decodes the head of a plain-text book for display in the
// import dialog. Encoding is detected, not assumed.
func textPreview(data []byte) string {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	text := storage.DecodeText(head)

	runes := []rune(text)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return strings.TrimSpace(string(runes))
}
