package archive

import (
	"context"
	"errors"
	"fmt"

	"batch-archiver/internal/domain"
)

// ErrCorrupt reports that an archive failed its integrity check.
var ErrCorrupt = errors.New("archive is corrupt")

// ErrUnsupportedFormat reports an archive format a backend cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// Backend creates archives and checks archive integrity.
//
// Create writes an archive containing inputPath at outputPath. Check
// returns nil for a valid archive and an error wrapping ErrCorrupt for an
// invalid one. Both must return the context error unchanged (wrapped at
// most) when cancelled, so callers can tell cancellation from failure.
type Backend interface {
	Create(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error
	Check(ctx context.Context, archivePath string) error
}

// BackendError is an operation-aware error with optional command context.
type BackendError struct {
	Op         string     `json:"op"`
	Path       string     `json:"path"`
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog"`
	Err        error      `json:"-"`
}

// Error formats backend failures for logs and UI.
func (e *BackendError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Message)
	}

	return fmt.Sprintf(
		"%s %s: %s (cmd=%s exit=%d)",
		e.Op,
		e.Path,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *BackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}
