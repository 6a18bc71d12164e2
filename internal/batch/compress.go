package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"batch-archiver/internal/archive"
	"batch-archiver/internal/domain"
)

// ReportFunc forwards a free-text problem report to an external
// collaborator. Implementations are fire-and-forget and swallow their
// own failures.
type ReportFunc func(message string)

// CompressionJob compresses every file directly under the input root
// into an individual archive.
//
// The destination-exists check and the backend invocation are not
// transactional: a second process racing on the same output path can
// still collide. This is an accepted limitation.
type CompressionJob struct {
	cfg      Config
	backend  archive.Backend
	stats    *Stats
	reporter Reporter
	sampler  *ThroughputSampler
	report   ReportFunc

	readDir  func(name string) ([]os.DirEntry, error)
	stat     func(name string) (os.FileInfo, error)
	remove   func(name string) error
	mkdirAll func(path string, perm os.FileMode) error
}

// NewCompressionJob wires a compression run. reporter, sampler and
// report may be nil.
func NewCompressionJob(cfg Config, backend archive.Backend, reporter Reporter, sampler *ThroughputSampler, report ReportFunc) *CompressionJob {
	return &CompressionJob{
		cfg:      cfg.Normalized(),
		backend:  backend,
		stats:    NewStats(),
		reporter: reporter,
		sampler:  sampler,
		report:   report,
		readDir:  os.ReadDir,
		stat:     os.Stat,
		remove:   os.Remove,
		mkdirAll: os.MkdirAll,
	}
}

// Stats exposes the job's counters for live display.
func (j *CompressionJob) Stats() *Stats {
	return j.stats
}

// itemResult pairs a per-file result with whether the item actually ran.
// Items pre-empted by cancellation are not counted.
type itemResult struct {
	result    domain.FileResult
	processed bool
}

// Run enumerates the input root and compresses each file, sequentially
// or with up to MaxConcurrency workers. Per-item failures never abort
// the batch; enumeration and configuration errors do.
func (j *CompressionJob) Run(ctx context.Context) (domain.Summary, error) {
	if err := j.cfg.Validate(); err != nil {
		return domain.Summary{}, err
	}

	inputs, err := enumerateInputFiles(j.readDir, j.cfg.InputDir)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("enumerate input folder %s: %w", j.cfg.InputDir, err)
	}
	if err := j.mkdirAll(j.cfg.OutputDir, 0o755); err != nil {
		return domain.Summary{}, fmt.Errorf("create output folder %s: %w", j.cfg.OutputDir, err)
	}

	tasks := make([]FileTask, 0, len(inputs))
	for _, input := range inputs {
		name := SanitizeFileName(filepath.Base(input)) + string(j.cfg.Format)
		tasks = append(tasks, FileTask{
			InputPath:  input,
			OutputPath: filepath.Join(j.cfg.OutputDir, name),
		})
	}

	j.stats.Reset(len(tasks))
	emitLog(j.reporter, fmt.Sprintf("Found %d files to compress in %s", len(tasks), j.cfg.InputDir))

	if j.sampler != nil {
		j.sampler.Start()
		defer j.sampler.Stop()
	}

	workers := j.cfg.MaxConcurrency
	if workers > len(tasks) {
		workers = len(tasks)
	}
	if workers < 1 {
		workers = 1
	}

	taskCh := make(chan FileTask)
	resultCh := make(chan itemResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resultCh <- j.processOne(ctx, task)
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				// Stop dispatching; in-flight workers finish unwinding.
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]domain.FileResult, 0, len(tasks))
	for item := range resultCh {
		if !item.processed {
			continue
		}

		j.stats.Add(item.result.Outcome)
		results = append(results, item.result)

		name := filepath.Base(item.result.Path)
		emitProgress(j.reporter, j.stats.Completed(), len(tasks), name, "Compressing")
		switch item.result.Outcome {
		case domain.OutcomeFailed:
			emitLog(j.reporter, fmt.Sprintf("Failed: %s (%s)", name, item.result.Reason))
		case domain.OutcomeSkipped:
			emitLog(j.reporter, fmt.Sprintf("Skipped: %s (%s)", name, item.result.Reason))
		}
	}

	cancelled := ctx.Err() != nil
	snap := j.stats.Snapshot()
	emitLog(j.reporter, summaryLine("Compression", snap, cancelled))

	return domain.Summary{Stats: snap, Files: results, Cancelled: cancelled}, nil
}

// processOne compresses a single file and classifies the outcome.
// Unclassified panics are degraded to a Failed result so one bad item
// cannot terminate the batch loop.
func (j *CompressionJob) processOne(ctx context.Context, task FileTask) (item itemResult) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("unexpected error compressing %s: %v", task.InputPath, rec)
			emitLog(j.reporter, msg)
			j.reportProblem(msg)
			item = itemResult{
				result: domain.FileResult{
					Path:    task.InputPath,
					Outcome: domain.OutcomeFailed,
					Reason:  fmt.Sprintf("unexpected error: %v", rec),
				},
				processed: true,
			}
		}
	}()

	if ctx.Err() != nil {
		return itemResult{}
	}

	// Skip check and archive creation are deliberately not transactional;
	// see the type comment.
	if _, err := j.stat(task.OutputPath); err == nil {
		return itemResult{
			result: domain.FileResult{
				Path:    task.InputPath,
				Outcome: domain.OutcomeSkipped,
				Reason:  "output archive already exists",
			},
			processed: true,
		}
	}

	if j.sampler != nil {
		j.sampler.SetTarget(task.OutputPath)
	}

	if err := j.backend.Create(ctx, task.InputPath, task.OutputPath, j.cfg.Format); err != nil {
		j.removePartial(task.OutputPath)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return itemResult{}
		}
		return itemResult{
			result: domain.FileResult{
				Path:    task.InputPath,
				Outcome: domain.OutcomeFailed,
				Reason:  err.Error(),
			},
			processed: true,
		}
	}

	if j.cfg.DeleteOriginals {
		if err := j.remove(task.InputPath); err != nil {
			// Best effort only; a leftover original is not a failure.
			emitLog(j.reporter, fmt.Sprintf("Could not delete original %s: %v", task.InputPath, err))
		}
	}

	return itemResult{
		result: domain.FileResult{
			Path:    task.InputPath,
			Outcome: domain.OutcomeSuccess,
		},
		processed: true,
	}
}

// removePartial deletes a partially written output archive.
func (j *CompressionJob) removePartial(path string) {
	if _, err := j.stat(path); err != nil {
		return
	}
	if err := j.remove(path); err != nil {
		emitLog(j.reporter, fmt.Sprintf("Could not remove partial archive %s: %v", path, err))
	}
}

// reportProblem forwards to the report collaborator when configured.
func (j *CompressionJob) reportProblem(message string) {
	if j.report != nil {
		j.report(message)
	}
}

// summaryLine formats the end-of-run summary shown regardless of outcome.
func summaryLine(verb string, snap domain.StatsSnapshot, cancelled bool) string {
	state := "finished"
	if cancelled {
		state = "cancelled"
	}
	return fmt.Sprintf(
		"%s %s: %d total, %d succeeded, %d failed, %d skipped in %s",
		verb,
		state,
		snap.Total,
		snap.Success,
		snap.Failed,
		snap.Skipped,
		snap.Elapsed.Round(10*time.Millisecond),
	)
}
