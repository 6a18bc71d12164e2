package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"batch-archiver/internal/domain"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec. Cancelling the context kills
// the process directly.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// SevenZipBackend drives the external 7z executable for archive creation
// and integrity testing. It handles every supported format, including
// checking .rar archives the in-process backend cannot open.
type SevenZipBackend struct {
	sevenZipPath string
	runner       commandRunner
	stat         func(name string) (os.FileInfo, error)
	onLog        func(log CommandLog)
}

// NewSevenZipBackend constructs the production backend. onLog receives a
// record of every command invocation and may be nil.
func NewSevenZipBackend(onLog func(log CommandLog)) *SevenZipBackend {
	return &SevenZipBackend{
		sevenZipPath: "7z",
		runner:       &execRunner{},
		stat:         os.Stat,
		onLog:        onLog,
	}
}

// Create builds an archive of inputPath at outputPath using 7z.
func (b *SevenZipBackend) Create(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error {
	if strings.TrimSpace(inputPath) == "" {
		return &BackendError{Op: "create", Path: outputPath, Message: "input path is required"}
	}
	if _, err := b.stat(inputPath); err != nil {
		return &BackendError{
			Op:      "create",
			Path:    inputPath,
			Message: "cannot access input file",
			Err:     err,
		}
	}

	args, err := buildCreateArgs(inputPath, outputPath, format)
	if err != nil {
		return &BackendError{Op: "create", Path: outputPath, Message: err.Error(), Err: err}
	}

	result, runErr := b.runner.Run(ctx, b.sevenZipPath, args...)
	log := CommandLog{
		Command:  b.sevenZipPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	b.emitLog(log)
	if runErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &BackendError{
			Op:         "create",
			Path:       outputPath,
			Message:    "7z archive creation failed",
			CommandLog: log,
			Err:        runErr,
		}
	}

	if _, err := b.stat(outputPath); err != nil {
		return &BackendError{
			Op:         "create",
			Path:       outputPath,
			Message:    "7z completed but output archive is missing",
			CommandLog: log,
			Err:        err,
		}
	}
	return nil
}

// Check tests archive integrity via `7z t`. A nonzero exit maps to
// ErrCorrupt; cancellation passes through as the context error.
func (b *SevenZipBackend) Check(ctx context.Context, archivePath string) error {
	if _, err := b.stat(archivePath); err != nil {
		return &BackendError{
			Op:      "check",
			Path:    archivePath,
			Message: "cannot access archive",
			Err:     err,
		}
	}

	args := buildTestArgs(archivePath)
	result, runErr := b.runner.Run(ctx, b.sevenZipPath, args...)
	log := CommandLog{
		Command:  b.sevenZipPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	b.emitLog(log)
	if runErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A positive exit code means 7z ran and rejected the archive;
		// anything else means the tool itself could not be run.
		if result.ExitCode > 0 {
			return &BackendError{
				Op:         "check",
				Path:       archivePath,
				Message:    "integrity test failed",
				CommandLog: log,
				Err:        fmt.Errorf("%w: exit code %d", ErrCorrupt, result.ExitCode),
			}
		}
		return &BackendError{
			Op:         "check",
			Path:       archivePath,
			Message:    "cannot run 7z",
			CommandLog: log,
			Err:        runErr,
		}
	}
	return nil
}

// emitLog forwards command logs when a sink is configured.
func (b *SevenZipBackend) emitLog(log CommandLog) {
	if b.onLog != nil {
		b.onLog(log)
	}
}

// buildCreateArgs builds 7z CLI args for single-file archive creation.
func buildCreateArgs(inputPath, outputPath string, format domain.ArchiveFormat) ([]string, error) {
	var archiveType string
	switch format {
	case domain.Format7z:
		archiveType = "7z"
	case domain.FormatZip:
		archiveType = "zip"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return []string{
		"a",
		"-t" + archiveType,
		"-mx=9",
		"-y",
		outputPath,
		inputPath,
	}, nil
}

// buildTestArgs builds 7z CLI args for an integrity test.
func buildTestArgs(archivePath string) []string {
	return []string{"t", "-y", archivePath}
}

// NewSevenZipBackendForTests constructs a backend with injectable
// dependencies.
func NewSevenZipBackendForTests(
	sevenZipPath string,
	runner commandRunner,
	stat func(name string) (os.FileInfo, error),
	onLog func(log CommandLog),
) *SevenZipBackend {
	return &SevenZipBackend{
		sevenZipPath: sevenZipPath,
		runner:       runner,
		stat:         stat,
		onLog:        onLog,
	}
}
