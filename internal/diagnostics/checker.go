package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"batch-archiver/internal/domain"
)

// Checker validates the external archive tool and required folders.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkSevenZip(settings.Backend),
		c.checkInputDir(settings.InputDir),
		c.checkOutputDir(settings.OutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkSevenZip verifies the 7z executable is on PATH. The in-process
// zip backend still needs it when verifying .7z or .rar archives.
func (c *Checker) checkSevenZip(backend domain.BackendKind) domain.DiagnosticItem {
	path, err := c.lookPath("7z")
	if err != nil {
		item := domain.DiagnosticItem{
			ID:      "tool_7z",
			Name:    "7z",
			Status:  domain.DiagnosticStatusFail,
			Message: "Tool not found in PATH: 7z",
			Hint:    "Install 7-Zip and ensure the 7z binary is available on PATH before starting a batch.",
		}
		if backend == domain.BackendZip {
			item.Hint = "The zip backend only needs 7z for verifying .7z and .rar archives; install 7-Zip to verify those formats."
		}
		return item
	}

	return domain.DiagnosticItem{
		ID:      "tool_7z",
		Name:    "7z",
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkInputDir validates the configured source folder.
func (c *Checker) checkInputDir(inputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "input_dir",
		Name: "Input folder",
	}

	if strings.TrimSpace(inputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Input folder is not selected."
		item.Hint = "Pick the folder containing the files to process."
		return item
	}

	info, err := c.stat(inputDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Input folder does not exist: %s", inputDir)
		} else {
			item.Message = fmt.Sprintf("Cannot access input folder: %s", inputDir)
		}
		item.Hint = "Pick an existing, readable folder."
		return item
	}

	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Input path is not a folder: %s", inputDir)
		item.Hint = "Pick a folder, not a file."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Input folder found: %s", inputDir)
	return item
}

// checkOutputDir validates output folder existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output folder",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output folder is not selected."
		item.Hint = "Pick a folder where archives can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output folder: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output folder is not writable: %s", outputDir)
		item.Hint = "Choose a writable folder for archive output."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable folder: %s", outputDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
