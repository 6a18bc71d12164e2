package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"batch-archiver/internal/domain"
)

// DefaultVerifyTimeout bounds one archive integrity test so a hung
// backend cannot stall the whole batch.
const DefaultVerifyTimeout = 10 * time.Minute

// ErrInvalidConfig is wrapped by all configuration validation failures.
var ErrInvalidConfig = errors.New("invalid job configuration")

// Config holds the immutable parameters of one batch run.
type Config struct {
	Mode              domain.JobMode
	InputDir          string
	OutputDir         string
	Format            domain.ArchiveFormat
	DeleteOriginals   bool
	IncludeSubfolders bool
	MoveOnSuccess     bool
	SuccessDir        string
	MoveOnFailure     bool
	FailureDir        string
	MaxConcurrency    int
	VerifyTimeout     time.Duration
}

// Normalized returns a copy with trimmed paths, clamped concurrency and
// the default verification timeout applied.
func (c Config) Normalized() Config {
	c.InputDir = strings.TrimSpace(c.InputDir)
	c.OutputDir = strings.TrimSpace(c.OutputDir)
	c.SuccessDir = strings.TrimSpace(c.SuccessDir)
	c.FailureDir = strings.TrimSpace(c.FailureDir)
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = DefaultVerifyTimeout
	}
	return c
}

// Validate enforces the folder-selection invariants before a run starts.
// A validation failure is a configuration error; the run never begins.
func (c Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: input folder is required", ErrInvalidConfig)
	}

	switch c.Mode {
	case domain.JobModeCompress:
		if c.OutputDir == "" {
			return fmt.Errorf("%w: output folder is required", ErrInvalidConfig)
		}
		if samePath(c.InputDir, c.OutputDir) {
			return fmt.Errorf("%w: input and output folders must differ", ErrInvalidConfig)
		}
		if c.Format != domain.Format7z && c.Format != domain.FormatZip {
			return fmt.Errorf("%w: unsupported output format %q", ErrInvalidConfig, c.Format)
		}
	case domain.JobModeVerify:
		if c.MoveOnSuccess {
			if c.SuccessDir == "" {
				return fmt.Errorf("%w: success folder is required when moving on success", ErrInvalidConfig)
			}
			if samePath(c.SuccessDir, c.InputDir) {
				return fmt.Errorf("%w: success folder must differ from the input folder", ErrInvalidConfig)
			}
		}
		if c.MoveOnFailure {
			if c.FailureDir == "" {
				return fmt.Errorf("%w: failure folder is required when moving on failure", ErrInvalidConfig)
			}
			if samePath(c.FailureDir, c.InputDir) {
				return fmt.Errorf("%w: failure folder must differ from the input folder", ErrInvalidConfig)
			}
		}
		if c.MoveOnSuccess && c.MoveOnFailure && samePath(c.SuccessDir, c.FailureDir) {
			return fmt.Errorf("%w: success and failure folders must differ", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}

	return nil
}

// samePath compares two paths after cleaning, case-sensitively.
func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
