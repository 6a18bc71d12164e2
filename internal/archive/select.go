package archive

import (
	"context"
	"path/filepath"
	"strings"

	"batch-archiver/internal/domain"
)

// SplitBackend handles zip work in-process and routes every other format
// to the external 7z backend. It is the "zip/7z split" backend variant;
// callers stay agnostic behind the Backend interface.
type SplitBackend struct {
	zip   *ZipBackend
	seven *SevenZipBackend
}

// NewSplitBackend composes the in-process zip and external 7z backends.
func NewSplitBackend(seven *SevenZipBackend) *SplitBackend {
	return &SplitBackend{
		zip:   NewZipBackend(),
		seven: seven,
	}
}

// Create routes zip output to the in-process writer and 7z output to 7z.
func (b *SplitBackend) Create(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error {
	if format == domain.FormatZip {
		return b.zip.Create(ctx, inputPath, outputPath, format)
	}
	return b.seven.Create(ctx, inputPath, outputPath, format)
}

// Check tests zip archives in-process and all others via 7z.
func (b *SplitBackend) Check(ctx context.Context, archivePath string) error {
	if strings.ToLower(filepath.Ext(archivePath)) == ".zip" {
		return b.zip.Check(ctx, archivePath)
	}
	return b.seven.Check(ctx, archivePath)
}

// ForKind returns the backend implementation for the configured kind.
// onLog receives external command logs and may be nil.
func ForKind(kind domain.BackendKind, onLog func(log CommandLog)) Backend {
	switch kind {
	case domain.BackendZip:
		return NewSplitBackend(NewSevenZipBackend(onLog))
	default:
		return NewSevenZipBackend(onLog)
	}
}
