package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"batch-archiver/internal/domain"
)

// ZipBackend creates and checks zip archives in-process. It only handles
// the zip format; Check on other extensions returns ErrUnsupportedFormat
// so callers can route those archives to the 7z backend.
type ZipBackend struct{}

// NewZipBackend constructs the in-process zip backend.
func NewZipBackend() *ZipBackend {
	return &ZipBackend{}
}

// Create writes a single-entry deflate zip of inputPath at outputPath.
// A partially written archive is left behind on error or cancellation;
// the caller owns cleanup of partial output.
func (b *ZipBackend) Create(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error {
	if format != domain.FormatZip {
		return &BackendError{
			Op:      "create",
			Path:    outputPath,
			Message: fmt.Sprintf("zip backend cannot produce %q archives", format),
			Err:     ErrUnsupportedFormat,
		}
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return &BackendError{Op: "create", Path: inputPath, Message: "cannot open input file", Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return &BackendError{Op: "create", Path: inputPath, Message: "cannot stat input file", Err: err}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return &BackendError{Op: "create", Path: outputPath, Message: "cannot create output archive", Err: err}
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	header := &zip.FileHeader{
		Name:     filepath.Base(inputPath),
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return &BackendError{Op: "create", Path: outputPath, Message: "cannot create zip entry", Err: err}
	}

	if _, err := io.Copy(w, &contextReader{ctx: ctx, r: in}); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &BackendError{Op: "create", Path: outputPath, Message: "write zip entry", Err: err}
	}

	if err := zw.Close(); err != nil {
		return &BackendError{Op: "create", Path: outputPath, Message: "finalize zip archive", Err: err}
	}
	if err := out.Close(); err != nil {
		return &BackendError{Op: "create", Path: outputPath, Message: "close output archive", Err: err}
	}
	return nil
}

// Check opens the archive and decompresses every entry; the zip reader
// verifies each entry's CRC32 while reading.
func (b *ZipBackend) Check(ctx context.Context, archivePath string) error {
	if strings.ToLower(filepath.Ext(archivePath)) != ".zip" {
		return &BackendError{
			Op:      "check",
			Path:    archivePath,
			Message: "zip backend can only test .zip archives",
			Err:     ErrUnsupportedFormat,
		}
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return &BackendError{
				Op:      "check",
				Path:    archivePath,
				Message: "not a valid zip archive",
				Err:     fmt.Errorf("%w: %v", ErrCorrupt, err),
			}
		}
		return &BackendError{Op: "check", Path: archivePath, Message: "cannot open archive", Err: err}
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		rc, err := entry.Open()
		if err != nil {
			return corruptEntryError(archivePath, entry.Name, err)
		}
		_, err = io.Copy(io.Discard, &contextReader{ctx: ctx, r: rc})
		rc.Close()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return corruptEntryError(archivePath, entry.Name, err)
		}
	}
	return nil
}

// corruptEntryError maps an unreadable entry to an ErrCorrupt failure.
func corruptEntryError(archivePath, entryName string, err error) error {
	return &BackendError{
		Op:      "check",
		Path:    archivePath,
		Message: fmt.Sprintf("entry %q failed integrity check", entryName),
		Err:     fmt.Errorf("%w: %v", ErrCorrupt, err),
	}
}

// contextReader aborts long copies when the context is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

// Read checks for cancellation before each chunk.
func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
