// Package archive exports and imports the on-disk library as a tar
// archive with gzip or zstd compression. It works on host filesystem
// paths, so the server only offers it when the native backend is active;
// the web backend reports the operation unsupported.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charlievieth/fastwalk"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/quillreader/backend/internal/storage"
)

// Compression selects the archive codec.
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

// Result summarizes one export or import.
type Result struct {
	Files     int   `json:"files"`
	TotalSize int64 `json:"total_size"`
}

// Export walks srcDir and writes a tar archive to outPath.
func Export(ctx context.Context, srcDir, outPath string, compression Compression) (Result, error) {
	var res Result

	outFile, err := os.Create(outPath)
	if err != nil {
		return res, storage.WrapOS(err)
	}
	defer outFile.Close()

	var (
		tw     *tar.Writer
		closer io.Closer
	)
	switch compression {
	case Gzip:
		gz := gzip.NewWriter(outFile)
		closer = gz
		tw = tar.NewWriter(gz)
	case Zstd:
		zw, err := zstd.NewWriter(outFile)
		if err != nil {
			return res, errors.Join(storage.ErrIO, err)
		}
		closer = zw
		tw = tar.NewWriter(zw)
	default:
		tw = tar.NewWriter(outFile)
	}

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, srcDir, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || path == srcDir {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return nil
		}
		header.Name = filepath.ToSlash(relPath)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()

		size, err := io.Copy(tw, file)
		if err != nil {
			return err
		}
		res.TotalSize += size
		res.Files++
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("export: %w", errors.Join(storage.ErrIO, err))
	}

	if err := tw.Close(); err != nil {
		return res, errors.Join(storage.ErrIO, err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return res, errors.Join(storage.ErrIO, err)
		}
	}
	return res, outFile.Close()
}

// Import extracts an archive into destDir, auto-detecting compression
// from the file's magic bytes. Entries escaping destDir are rejected.
func Import(ctx context.Context, archivePath, destDir string) (Result, error) {
	var res Result

	f, err := os.Open(archivePath)
	if err != nil {
		return res, storage.WrapOS(err)
	}
	defer f.Close()

	reader, err := decompress(f)
	if err != nil {
		return res, err
	}

	tr := tar.NewReader(reader)
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("import: %w", errors.Join(storage.ErrIO, err))
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return res, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return res, storage.WrapOS(err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return res, storage.WrapOS(err)
			}
			out, err := os.Create(target)
			if err != nil {
				return res, storage.WrapOS(err)
			}
			size, err := io.Copy(out, tr)
			out.Close()
			if err != nil {
				return res, errors.Join(storage.ErrIO, err)
			}
			res.TotalSize += size
			res.Files++
		}
	}
	return res, nil
}

var (
	magicGzip = []byte{0x1F, 0x8B}
	magicZstd = []byte{0x28, 0xB5, 0x2F, 0xFD}
)

// decompress peeks the stream's magic bytes and wraps the matching
// decoder, falling back to plain tar.
func decompress(f *os.File) (io.Reader, error) {
	magic := make([]byte, 4)
	n, err := f.Read(magic)
	if err != nil && err != io.EOF {
		return nil, errors.Join(storage.ErrIO, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Join(storage.ErrIO, err)
	}
	magic = magic[:n]

	switch {
	case len(magic) >= 2 && magic[0] == magicGzip[0] && magic[1] == magicGzip[1]:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Join(storage.ErrIO, err)
		}
		return gz, nil
	case len(magic) >= 4 && string(magic) == string(magicZstd):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, errors.Join(storage.ErrIO, err)
		}
		return zr.IOReadCloser(), nil
	default:
		return f, nil
	}
}

// safeJoin joins name under dir, rejecting traversal outside it.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry %q escapes destination: %w", name, storage.ErrIO)
	}
	return target, nil
}
