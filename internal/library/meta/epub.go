package meta

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type epubInfo struct {
	Title  string
	Author string
	Cover  []byte
}

// extractEPUB reads the OPF package document out of an EPUB container and
// pulls title, creator and the cover image.
func extractEPUB(data []byte) (epubInfo, error) {
	var info epubInfo

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return info, fmt.Errorf("open epub container: %w", err)
	}

	opfPath, err := rootfilePath(zr)
	if err != nil {
		return info, err
	}

	opf, err := readZipFile(zr, opfPath)
	if err != nil {
		return info, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(opf))
	if err != nil {
		return info, fmt.Errorf("parse opf: %w", err)
	}

	info.Title = strings.TrimSpace(doc.Find(`dc\:title`).First().Text())
	info.Author = strings.TrimSpace(doc.Find(`dc\:creator`).First().Text())

	if href := coverHref(doc); href != "" {
		// Manifest hrefs are relative to the OPF's directory.
		coverPath := path.Join(path.Dir(opfPath), href)
		if cover, err := readZipFile(zr, coverPath); err == nil {
			info.Cover = cover
		}
	}
	return info, nil
}

// rootfilePath locates the OPF via META-INF/container.xml.
func rootfilePath(zr *zip.Reader) (string, error) {
	container, err := readZipFile(zr, "META-INF/container.xml")
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(container))
	if err != nil {
		return "", fmt.Errorf("parse container.xml: %w", err)
	}

	full, ok := doc.Find("rootfile").First().Attr("full-path")
	if !ok || full == "" {
		return "", fmt.Errorf("container.xml has no rootfile")
	}
	return full, nil
}

// coverHref finds the cover image in the OPF manifest, trying the EPUB 3
// cover-image property first and the EPUB 2 meta[name=cover] convention
// second.
func coverHref(doc *goquery.Document) string {
	var href string

	doc.Find("manifest item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if props, _ := item.Attr("properties"); strings.Contains(props, "cover-image") {
			href, _ = item.Attr("href")
			return false
		}
		return true
	})
	if href != "" {
		return href
	}

	coverID, ok := doc.Find(`meta[name="cover"]`).First().Attr("content")
	if !ok || coverID == "" {
		return ""
	}
	doc.Find("manifest item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if id, _ := item.Attr("id"); id == coverID {
			href, _ = item.Attr("href")
			return false
		}
		return true
	})
	return href
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s not in archive", name)
}
