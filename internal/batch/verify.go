package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"batch-archiver/internal/archive"
	"batch-archiver/internal/domain"
)

// VerificationJob checks the integrity of every archive under the input
// root and optionally relocates each archive by outcome. Archives are
// processed strictly sequentially: the external backend is not assumed
// safe for concurrent invocation.
type VerificationJob struct {
	cfg       Config
	backend   archive.Backend
	stats     *Stats
	reporter  Reporter
	relocator *Relocator
	report    ReportFunc

	enumerate func(root string, includeSubfolders bool) ([]string, error)
}

// NewVerificationJob wires a verification run. reporter, relocator and
// report may be nil; without a relocator the move options are ignored.
func NewVerificationJob(cfg Config, backend archive.Backend, reporter Reporter, relocator *Relocator, report ReportFunc) *VerificationJob {
	return &VerificationJob{
		cfg:       cfg.Normalized(),
		backend:   backend,
		stats:     NewStats(),
		reporter:  reporter,
		relocator: relocator,
		report:    report,
		enumerate: enumerateArchives,
	}
}

// Stats exposes the job's counters for live display.
func (j *VerificationJob) Stats() *Stats {
	return j.stats
}

// Run enumerates archives and verifies each in enumeration order.
// A per-item timeout degrades a hung check to a Failed outcome; user
// cancellation aborts the whole run while preserving completed stats.
func (j *VerificationJob) Run(ctx context.Context) (domain.Summary, error) {
	if err := j.cfg.Validate(); err != nil {
		return domain.Summary{}, err
	}

	archives, err := j.enumerate(j.cfg.InputDir, j.cfg.IncludeSubfolders)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("enumerate archives under %s: %w", j.cfg.InputDir, err)
	}

	j.stats.Reset(len(archives))
	emitLog(j.reporter, fmt.Sprintf("Found %d archives to verify in %s", len(archives), j.cfg.InputDir))

	results := make([]domain.FileResult, 0, len(archives))
	cancelled := false

	for _, path := range archives {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		item := j.verifyOne(ctx, path)
		if !item.processed {
			cancelled = true
			break
		}

		j.stats.Add(item.result.Outcome)
		results = append(results, item.result)

		name := filepath.Base(path)
		emitProgress(j.reporter, j.stats.Completed(), len(archives), name, "Verifying")
		if item.result.Outcome == domain.OutcomeFailed {
			emitLog(j.reporter, fmt.Sprintf("Failed: %s (%s)", name, item.result.Reason))
		}
	}

	snap := j.stats.Snapshot()
	emitLog(j.reporter, summaryLine("Verification", snap, cancelled))

	return domain.Summary{Stats: snap, Files: results, Cancelled: cancelled}, nil
}

// verifyOne checks a single archive and applies outcome-based
// relocation. Unclassified panics degrade to a Failed result.
func (j *VerificationJob) verifyOne(ctx context.Context, path string) (item itemResult) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("unexpected error verifying %s: %v", path, rec)
			emitLog(j.reporter, msg)
			j.reportProblem(msg)
			item = itemResult{
				result: domain.FileResult{
					Path:    path,
					Outcome: domain.OutcomeFailed,
					Reason:  fmt.Sprintf("unexpected error: %v", rec),
				},
				processed: true,
			}
		}
	}()

	itemCtx, cancel := context.WithTimeout(ctx, j.cfg.VerifyTimeout)
	defer cancel()

	err := j.backend.Check(itemCtx, path)

	result := domain.FileResult{Path: path}
	switch {
	case err == nil:
		result.Outcome = domain.OutcomeSuccess
	case ctx.Err() != nil:
		// User cancellation aborts the run; item timeout below does not.
		return itemResult{}
	case errors.Is(err, context.DeadlineExceeded):
		result.Outcome = domain.OutcomeFailed
		result.Reason = fmt.Sprintf("integrity check timed out after %s", j.cfg.VerifyTimeout)
	case errors.Is(err, archive.ErrCorrupt):
		result.Outcome = domain.OutcomeFailed
		result.Reason = err.Error()
	default:
		result.Outcome = domain.OutcomeFailed
		result.Reason = err.Error()
		j.reportProblem(fmt.Sprintf("verification backend error for %s: %v", path, err))
	}

	j.relocate(&result)
	return itemResult{result: result, processed: true}
}

// relocate applies the move-on-success / move-on-failure options.
// Relocation problems are logged and never flip the outcome.
func (j *VerificationJob) relocate(result *domain.FileResult) {
	if j.relocator == nil {
		return
	}

	var destRoot string
	switch {
	case result.Outcome == domain.OutcomeSuccess && j.cfg.MoveOnSuccess:
		destRoot = j.cfg.SuccessDir
	case result.Outcome == domain.OutcomeFailed && j.cfg.MoveOnFailure:
		destRoot = j.cfg.FailureDir
	default:
		return
	}

	target, err := j.relocator.Move(result.Path, destRoot, j.cfg.InputDir, j.cfg.IncludeSubfolders)
	if err != nil {
		if errors.Is(err, ErrDestinationExists) {
			emitLog(j.reporter, fmt.Sprintf("Not moved, destination exists: %s", result.Path))
		} else {
			emitLog(j.reporter, fmt.Sprintf("Move failed for %s: %v", result.Path, err))
		}
		return
	}
	emitLog(j.reporter, fmt.Sprintf("Moved %s to %s", filepath.Base(result.Path), target))
}

// reportProblem forwards to the report collaborator when configured.
func (j *VerificationJob) reportProblem(message string) {
	if j.report != nil {
		j.report(message)
	}
}

// NewVerificationJobForTests wires a job with injectable enumeration.
func NewVerificationJobForTests(
	cfg Config,
	backend archive.Backend,
	reporter Reporter,
	relocator *Relocator,
	report ReportFunc,
	enumerate func(root string, includeSubfolders bool) ([]string, error),
) *VerificationJob {
	j := NewVerificationJob(cfg, backend, reporter, relocator, report)
	j.enumerate = enumerate
	return j
}
