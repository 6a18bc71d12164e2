package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"batch-archiver/internal/domain"
)

// fakeBackend simulates archive creation and checking outcomes.
type fakeBackend struct {
	create func(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error
	check  func(ctx context.Context, archivePath string) error
}

// Create delegates to injected behavior or writes a stub archive.
func (f *fakeBackend) Create(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error {
	if f.create != nil {
		return f.create(ctx, inputPath, outputPath, format)
	}
	return os.WriteFile(outputPath, []byte("archive"), 0o644)
}

// Check delegates to injected behavior or reports a valid archive.
func (f *fakeBackend) Check(ctx context.Context, archivePath string) error {
	if f.check != nil {
		return f.check(ctx, archivePath)
	}
	return nil
}

// recordingReporter captures progress events and log lines.
type recordingReporter struct {
	mu       sync.Mutex
	currents []int
	totals   []int
	names    []string
	verbs    []string
	lines    []string
}

// Progress records one progress event.
func (r *recordingReporter) Progress(current, total int, fileName, verb string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currents = append(r.currents, current)
	r.totals = append(r.totals, total)
	r.names = append(r.names, fileName)
	r.verbs = append(r.verbs, verb)
}

// Log records one log line.
func (r *recordingReporter) Log(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

// mustWriteFile writes a test fixture or fails the test.
func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// compressConfig builds a baseline compression config over temp dirs.
func compressConfig(inputDir, outputDir string) Config {
	return Config{
		Mode:           domain.JobModeCompress,
		InputDir:       inputDir,
		OutputDir:      outputDir,
		Format:         domain.FormatZip,
		MaxConcurrency: 1,
	}
}

// TestCompressionJobCompressesAllFiles checks the three-file happy path.
func TestCompressionJobCompressesAllFiles(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "in")
	outputDir := filepath.Join(root, "out")
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		mustWriteFile(t, filepath.Join(inputDir, name), "data")
	}

	reporter := &recordingReporter{}
	job := NewCompressionJob(compressConfig(inputDir, outputDir), &fakeBackend{}, reporter, nil, nil)

	summary, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Stats.Success != 3 || summary.Stats.Failed != 0 || summary.Stats.Skipped != 0 {
		t.Fatalf("stats = %+v, want 3/0/0", summary.Stats)
	}
	if summary.Stats.Total != 3 {
		t.Fatalf("total = %d, want 3", summary.Stats.Total)
	}
	for _, name := range []string{"a.txt.zip", "b.txt.zip", "c.txt.zip"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Fatalf("missing archive %s: %v", name, err)
		}
	}

	if len(reporter.currents) != 3 {
		t.Fatalf("progress events = %d, want 3", len(reporter.currents))
	}
	for i, current := range reporter.currents {
		if current != i+1 {
			t.Fatalf("progress currents = %v, want completed-so-far counts", reporter.currents)
		}
		if reporter.totals[i] != 3 {
			t.Fatalf("progress total = %d, want 3", reporter.totals[i])
		}
		if reporter.verbs[i] != "Compressing" {
			t.Fatalf("verb = %q, want Compressing", reporter.verbs[i])
		}
	}
}

// TestCompressionJobSkipsExistingOutput checks existing archives are
// never overwritten and counted as skipped.
func TestCompressionJobSkipsExistingOutput(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "in")
	outputDir := filepath.Join(root, "out")
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		mustWriteFile(t, filepath.Join(inputDir, name), "data")
	}
	existing := filepath.Join(outputDir, "b.txt.zip")
	mustWriteFile(t, existing, "previous archive")

	job := NewCompressionJob(compressConfig(inputDir, outputDir), &fakeBackend{}, &recordingReporter{}, nil, nil)
	summary, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Stats.Success != 2 || summary.Stats.Skipped != 1 || summary.Stats.Failed != 0 {
		t.Fatalf("stats = %+v, want 2 success / 1 skipped", summary.Stats)
	}
	if got := summary.Stats.Success + summary.Stats.Failed + summary.Stats.Skipped; got != summary.Stats.Total {
		t.Fatalf("total invariant broken: %+v", summary.Stats)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("read existing archive: %v", err)
	}
	if string(data) != "previous archive" {
		t.Fatalf("existing archive was modified: %q", data)
	}
}

// TestCompressionJobDeleteOriginals checks the input file is removed
// only on success.
func TestCompressionJobDeleteOriginals(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "in")
	outputDir := filepath.Join(root, "out")
	good := filepath.Join(inputDir, "good.txt")
	bad := filepath.Join(inputDir, "bad.txt")
	mustWriteFile(t, good, "data")
	mustWriteFile(t, bad, "data")

	backend := &fakeBackend{
		create: func(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error {
			if filepath.Base(inputPath) == "bad.txt" {
				return errors.New("simulated backend failure")
			}
			return os.WriteFile(outputPath, []byte("archive"), 0o644)
		},
	}

	cfg := compressConfig(inputDir, outputDir)
	cfg.DeleteOriginals = true
	job := NewCompressionJob(cfg, backend, &recordingReporter{}, nil, nil)

	summary, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Stats.Success != 1 || summary.Stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 1 success / 1 failed", summary.Stats)
	}

	if _, err := os.Stat(good); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("successful input should be deleted, stat err = %v", err)
	}
	if _, err := os.Stat(bad); err != nil {
		t.Fatalf("failed input should remain: %v", err)
	}
}

// TestCompressionJobRemovesPartialOutputOnFailure checks cleanup of
// half-written archives after a backend error.
func TestCompressionJobRemovesPartialOutputOnFailure(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "in")
	outputDir := filepath.Join(root, "out")
	mustWriteFile(t, filepath.Join(inputDir, "a.txt"), "data")

	backend := &fakeBackend{
		create: func(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error {
			mustWriteFile(t, outputPath, "partial")
			return errors.New("disk full")
		},
	}

	job := NewCompressionJob(compressConfig(inputDir, outputDir), backend, &recordingReporter{}, nil, nil)
	summary, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 1 failed", summary.Stats)
	}

	if _, err := os.Stat(filepath.Join(outputDir, "a.txt.zip")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial archive should be removed, stat err = %v", err)
	}
}

// TestCompressionJobCancelRemovesPartialOutput checks cancellation
// cleanup and that completed stats are preserved.
func TestCompressionJobCancelRemovesPartialOutput(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "in")
	outputDir := filepath.Join(root, "out")
	mustWriteFile(t, filepath.Join(inputDir, "a.txt"), "data")
	mustWriteFile(t, filepath.Join(inputDir, "b.txt"), "data")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	backend := &fakeBackend{
		create: func(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error {
			calls++
			if calls == 1 {
				return os.WriteFile(outputPath, []byte("archive"), 0o644)
			}
			// Simulate a backend interrupted mid-write.
			mustWriteFile(t, outputPath, "partial")
			cancel()
			return context.Canceled
		},
	}

	job := NewCompressionJob(compressConfig(inputDir, outputDir), backend, &recordingReporter{}, nil, nil)
	summary, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !summary.Cancelled {
		t.Fatal("expected cancelled summary")
	}
	if summary.Stats.Success != 1 {
		t.Fatalf("completed stats should be preserved: %+v", summary.Stats)
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the completed archive to remain, got %d entries", len(entries))
	}
}

// TestCompressionJobConcurrentRunKeepsCountsConsistent checks the worker
// pool aggregates correctly regardless of completion order.
func TestCompressionJobConcurrentRunKeepsCountsConsistent(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "in")
	outputDir := filepath.Join(root, "out")
	for i := 0; i < 8; i++ {
		mustWriteFile(t, filepath.Join(inputDir, string(rune('a'+i))+".txt"), "data")
	}

	reporter := &recordingReporter{}
	cfg := compressConfig(inputDir, outputDir)
	cfg.MaxConcurrency = 3
	job := NewCompressionJob(cfg, &fakeBackend{}, reporter, nil, nil)

	summary, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Stats.Success != 8 || summary.Stats.Total != 8 {
		t.Fatalf("stats = %+v, want 8/8", summary.Stats)
	}

	if len(reporter.currents) != 8 {
		t.Fatalf("progress events = %d, want 8", len(reporter.currents))
	}
	seen := map[int]bool{}
	for _, current := range reporter.currents {
		seen[current] = true
	}
	for i := 1; i <= 8; i++ {
		if !seen[i] {
			t.Fatalf("missing completed-count %d in %v", i, reporter.currents)
		}
	}
}

// TestCompressionJobRejectsSameInputAndOutput checks config validation
// prevents the run from starting.
func TestCompressionJobRejectsSameInputAndOutput(t *testing.T) {
	dir := t.TempDir()
	job := NewCompressionJob(compressConfig(dir, dir), &fakeBackend{}, nil, nil, nil)

	if _, err := job.Run(context.Background()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
}

// TestCompressionJobEnumerationErrorAbortsRun checks a missing input
// root is a terminal failure before any task executes.
func TestCompressionJobEnumerationErrorAbortsRun(t *testing.T) {
	root := t.TempDir()
	cfg := compressConfig(filepath.Join(root, "missing"), filepath.Join(root, "out"))

	created := false
	backend := &fakeBackend{
		create: func(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error {
			created = true
			return nil
		},
	}

	job := NewCompressionJob(cfg, backend, nil, nil, nil)
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected enumeration error")
	}
	if created {
		t.Fatal("no task should execute after enumeration failure")
	}
}

// TestCompressionJobRecoversFromBackendPanic checks the per-item
// boundary degrades panics to failed outcomes and reports them.
func TestCompressionJobRecoversFromBackendPanic(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "in")
	outputDir := filepath.Join(root, "out")
	mustWriteFile(t, filepath.Join(inputDir, "a.txt"), "data")
	mustWriteFile(t, filepath.Join(inputDir, "b.txt"), "data")

	backend := &fakeBackend{
		create: func(ctx context.Context, inputPath, outputPath string, format domain.ArchiveFormat) error {
			if filepath.Base(inputPath) == "a.txt" {
				panic("backend bug")
			}
			return os.WriteFile(outputPath, []byte("archive"), 0o644)
		},
	}

	var reported []string
	report := func(message string) { reported = append(reported, message) }

	job := NewCompressionJob(compressConfig(inputDir, outputDir), backend, &recordingReporter{}, nil, report)
	summary, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Stats.Failed != 1 || summary.Stats.Success != 1 {
		t.Fatalf("stats = %+v, want 1 failed / 1 success", summary.Stats)
	}
	if len(reported) != 1 {
		t.Fatalf("problem reports = %d, want 1", len(reported))
	}
}
