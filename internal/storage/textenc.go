package storage

import (
	"bytes"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// DecodeText converts raw file bytes to a string. Valid UTF-8 is the fast
// path; everything else goes through BOM handling and charset detection.
// Detection failures fall back to a lossy UTF-8 interpretation rather than
// an error, matching how the reader treats text it merely displays.
func DecodeText(data []byte) string {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):])
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes)
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes)
	}

	if utf8.Valid(data) {
		return string(data)
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err == nil {
		if enc, err := htmlindex.Get(result.Charset); err == nil {
			return decodeWith(data, enc.NewDecoder().Bytes)
		}
	}
	return string(data)
}

func decodeWith(data []byte, decode func([]byte) ([]byte, error)) string {
	out, err := decode(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
