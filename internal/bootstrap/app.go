package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"batch-archiver/internal/archive"
	"batch-archiver/internal/batch"
	"batch-archiver/internal/config"
	"batch-archiver/internal/diagnostics"
	"batch-archiver/internal/domain"
	"batch-archiver/internal/jobs"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// App wires configuration, jobs, the batch engine, and UI runtime
// callbacks. Collaborators are injected at construction; there is no
// ambient singleton.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	problems    ProblemSink

	mu          sync.Mutex
	activeJobID string
	cancel      context.CancelFunc
	events      *jobs.EventBus
	runtimeCtx  context.Context
}

// New builds the application with persisted settings and startup
// diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".batch-archiver", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	return &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		problems:    logSink{},
		events:      jobs.NewEventBus(1000),
	}, nil
}

// SetProblemSink replaces the crash/bug reporting collaborator.
func (a *App) SetProblemSink(sink ProblemSink) {
	if sink != nil {
		a.problems = sink
	}
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Batch Archiver",
		Width:       1100,
		Height:      760,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	report := a.Diagnostics
	a.mu.Unlock()
	return report, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes
// diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// PickInputFolder opens a native directory picker for the source folder.
func (a *App) PickInputFolder() (string, error) {
	return a.pickFolder("Select input folder")
}

// PickOutputFolder opens a native directory picker for archive output.
func (a *App) PickOutputFolder() (string, error) {
	return a.pickFolder("Select output folder")
}

// PickSuccessFolder opens a native directory picker for verified archives.
func (a *App) PickSuccessFolder() (string, error) {
	return a.pickFolder("Select folder for valid archives")
}

// PickFailureFolder opens a native directory picker for failed archives.
func (a *App) PickFailureFolder() (string, error) {
	return a.pickFolder("Select folder for corrupt archives")
}

// pickFolder shows the system directory dialog. Pickers are only
// available between runs, never mid-batch.
func (a *App) pickFolder(title string) (string, error) {
	if a.Jobs.IsRunning() {
		return "", jobs.ErrJobAlreadyRunning
	}

	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: title,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in the
// file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// StartCompression validates configuration and runs a compression batch
// asynchronously. Configuration errors surface immediately and the run
// never begins.
func (a *App) StartCompression() (domain.Job, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Job{}, fmt.Errorf("load settings: %w", err)
	}

	cfg := configFromSettings(domain.JobModeCompress, settings)
	if err := cfg.Validate(); err != nil {
		return domain.Job{}, err
	}

	return a.startJob(domain.JobModeCompress, settings, cfg)
}

// StartVerification validates configuration and runs a verification
// batch asynchronously.
func (a *App) StartVerification() (domain.Job, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Job{}, fmt.Errorf("load settings: %w", err)
	}

	cfg := configFromSettings(domain.JobModeVerify, settings)
	if err := cfg.Validate(); err != nil {
		return domain.Job{}, err
	}

	return a.startJob(domain.JobModeVerify, settings, cfg)
}

// startJob registers the job, arms a fresh cancellation signal and
// launches the batch goroutine. A new signal is created per run and
// never reused once triggered.
func (a *App) startJob(mode domain.JobMode, settings domain.Settings, cfg batch.Config) (domain.Job, error) {
	jobID := uuid.NewString()
	if err := a.Jobs.Start(jobID, mode); err != nil {
		return domain.Job{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.activeJobID = jobID
	a.cancel = cancel
	a.Settings = settings
	a.mu.Unlock()

	a.publishStatus(jobID, domain.JobStatusEnumerating, "Job started")

	go a.runBatchJob(ctx, jobID, mode, settings, cfg)
	return a.Jobs.Current(), nil
}

// CancelJob cancels the currently running job, if any.
func (a *App) CancelJob() error {
	a.mu.Lock()
	cancel := a.cancel
	activeJobID := a.activeJobID
	a.mu.Unlock()

	if cancel == nil {
		return jobs.ErrNoRunningJob
	}

	cancel()
	if err := a.Jobs.Cancel(); err != nil && !errors.Is(err, jobs.ErrNoRunningJob) {
		return err
	}

	if activeJobID != "" {
		a.publishStatus(activeJobID, domain.JobStatusCancelled, "Cancellation requested")
	}
	return nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// runBatchJob executes the engine and maps its outcome to job events.
func (a *App) runBatchJob(ctx context.Context, jobID string, mode domain.JobMode, settings domain.Settings, cfg batch.Config) {
	reporter := &busReporter{app: a, jobID: jobID}
	backend := archive.ForKind(settings.Backend, func(cmd archive.CommandLog) {
		reporter.Log(fmt.Sprintf("%s %s (exit=%d)", cmd.Command, strings.Join(cmd.Args, " "), cmd.ExitCode))
	})
	report := batch.ReportFunc(a.problems.Report)

	if err := a.Jobs.Transition(domain.JobStatusProcessing); err == nil {
		a.publishStatus(jobID, domain.JobStatusProcessing, "Processing files")
	}

	var summary domain.Summary
	var err error
	switch mode {
	case domain.JobModeCompress:
		sampler := batch.NewThroughputSampler(batch.DefaultSampleInterval, func(mbPerSecond float64) {
			a.publishEvent(jobs.Event{
				JobID:       jobID,
				Type:        jobs.EventTypeThroughput,
				MBPerSecond: mbPerSecond,
			})
		})
		job := batch.NewCompressionJob(cfg, backend, reporter, sampler, report)
		summary, err = job.Run(ctx)
	default:
		job := batch.NewVerificationJob(cfg, backend, reporter, batch.NewRelocator(), report)
		summary, err = job.Run(ctx)
	}

	if err != nil {
		_ = a.Jobs.Transition(domain.JobStatusFailed)
		a.publishStatus(jobID, domain.JobStatusFailed, "Job failed")
		a.publishEvent(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeError,
			Status:  domain.JobStatusFailed,
			Message: err.Error(),
		})
		a.clearActiveJob(jobID)
		return
	}

	// The summary is shown regardless of outcome, cancelled runs
	// included.
	if summary.Cancelled {
		_ = a.Jobs.Transition(domain.JobStatusCancelled)
		a.publishStatus(jobID, domain.JobStatusCancelled, "Job cancelled")
	} else if err := a.Jobs.Transition(domain.JobStatusDone); err == nil {
		a.publishStatus(jobID, domain.JobStatusDone, "Job completed")
	}
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeSummary,
		Status:  a.Jobs.Current().Status,
		Message: "Batch finished",
		Summary: &summary,
	})
	a.clearActiveJob(jobID)
}

// busReporter adapts the engine's Reporter to the event bus; the UI side
// of the bus owns any presentation-thread hand-off.
type busReporter struct {
	app   *App
	jobID string
}

// Progress publishes one progress event.
func (r *busReporter) Progress(current, total int, fileName, verb string) {
	r.app.publishEvent(jobs.Event{
		JobID:    r.jobID,
		Type:     jobs.EventTypeProgress,
		Current:  current,
		Total:    total,
		FileName: fileName,
		Verb:     verb,
	})
}

// Log publishes one log line.
func (r *busReporter) Log(line string) {
	r.app.publishEvent(jobs.Event{
		JobID:   r.jobID,
		Type:    jobs.EventTypeLog,
		Message: line,
	})
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// clearActiveJob clears cancellation handles for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.cancel = nil
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// configFromSettings maps persisted settings to one run's immutable
// configuration.
func configFromSettings(mode domain.JobMode, settings domain.Settings) batch.Config {
	return batch.Config{
		Mode:              mode,
		InputDir:          settings.InputDir,
		OutputDir:         settings.OutputDir,
		Format:            settings.Format,
		DeleteOriginals:   settings.DeleteOriginals,
		IncludeSubfolders: settings.IncludeSubfolders,
		MoveOnSuccess:     settings.MoveOnSuccess,
		SuccessDir:        settings.SuccessDir,
		MoveOnFailure:     settings.MoveOnFailure,
		FailureDir:        settings.FailureDir,
		MaxConcurrency:    settings.Concurrency,
	}.Normalized()
}

// normalizeSettings trims user inputs and applies defaults.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.InputDir = strings.TrimSpace(settings.InputDir)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.SuccessDir = strings.TrimSpace(settings.SuccessDir)
	settings.FailureDir = strings.TrimSpace(settings.FailureDir)
	if settings.Format == "" {
		settings.Format = domain.Format7z
	}
	if settings.Backend == "" {
		settings.Backend = domain.BackendSevenZip
	}
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}
	return settings
}

// openInFileManager launches the platform file explorer for the provided
// path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
