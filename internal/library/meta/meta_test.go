package meta

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Time Machine</dc:title>
    <dc:creator>H. G. Wells</dc:creator>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="cover-img" href="images/cover.png" media-type="image/png" properties="cover-image"/>
    <item id="chapter1" href="chapter1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
</package>`

var testCoverBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func buildEPUB(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for name, content := range map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(testContainerXML),
		"OEBPS/content.opf":      []byte(testOPF),
		"OEBPS/images/cover.png": testCoverBytes,
	} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractEPUB(t *testing.T) {
	info := Extract("upload.epub", buildEPUB(t))

	assert.Equal(t, FormatEPUB, info.Format)
	assert.Equal(t, "The Time Machine", info.Title)
	assert.Equal(t, "H. G. Wells", info.Author)
	assert.Equal(t, testCoverBytes, info.Cover)
}

func TestExtractEPUBWithBrokenMetadataKeepsFilenameTitle(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("mimetype")
	require.NoError(t, err)
	_, err = f.Write([]byte("application/epub+zip"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info := Extract("my_favorite_book.epub", buf.Bytes())
	assert.Equal(t, FormatEPUB, info.Format)
	assert.Equal(t, "my favorite book", info.Title)
	assert.Empty(t, info.Author)
	assert.Nil(t, info.Cover)
}

func TestExtractPDF(t *testing.T) {
	data := []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

	info := Extract("Thesis Draft.pdf", data)
	assert.Equal(t, FormatPDF, info.Format)
	assert.Equal(t, "Thesis Draft", info.Title)
}

func TestExtractTextPreview(t *testing.T) {
	info := Extract("notes.txt", []byte("  It was a dark and stormy night.\nChapter one begins."))

	assert.Equal(t, FormatTXT, info.Format)
	assert.Equal(t, "notes", info.Title)
	assert.Contains(t, info.Preview, "dark and stormy")
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "war and peace", titleFromFilename("/books/war_and_peace.epub"))
	assert.Equal(t, "report v2", titleFromFilename("report.v2.pdf"))
}
