package domain

import "time"

// JobMode selects which batch operation a job performs.
type JobMode string

const (
	JobModeCompress JobMode = "compress"
	JobModeVerify   JobMode = "verify"
)

// JobStatus tracks the lifecycle of a single batch job.
type JobStatus string

const (
	JobStatusIdle        JobStatus = "idle"
	JobStatusEnumerating JobStatus = "enumerating"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusDone        JobStatus = "done"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCancelled   JobStatus = "cancelled"
)

// Outcome classifies the result of processing one file.
type Outcome string

const (
	// OutcomeSuccess means the archive was created or verified as valid.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed means the backend failed or the archive is corrupt.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the destination already existed; not an error.
	OutcomeSkipped Outcome = "skipped"
)

// ArchiveFormat is an output archive format supported for compression.
type ArchiveFormat string

const (
	Format7z  ArchiveFormat = ".7z"
	FormatZip ArchiveFormat = ".zip"
)

// BackendKind selects which archive backend implementation is active.
type BackendKind string

const (
	// BackendSevenZip drives the external 7z executable for all formats.
	BackendSevenZip BackendKind = "sevenzip"
	// BackendZip creates and checks zip archives in-process.
	BackendZip BackendKind = "zip"
)

// Settings contains user-selectable configuration persisted between runs.
type Settings struct {
	InputDir          string        `json:"inputDir"`
	OutputDir         string        `json:"outputDir"`
	Format            ArchiveFormat `json:"format"`
	Backend           BackendKind   `json:"backend"`
	DeleteOriginals   bool          `json:"deleteOriginals"`
	IncludeSubfolders bool          `json:"includeSubfolders"`
	MoveOnSuccess     bool          `json:"moveOnSuccess"`
	SuccessDir        string        `json:"successDir"`
	MoveOnFailure     bool          `json:"moveOnFailure"`
	FailureDir        string        `json:"failureDir"`
	Concurrency       int           `json:"concurrency"`
}

// Job stores the current job identity, mode and lifecycle status.
type Job struct {
	ID     string    `json:"id"`
	Mode   JobMode   `json:"mode"`
	Status JobStatus `json:"status"`
}

// FileResult records the outcome of one processed file.
type FileResult struct {
	Path    string  `json:"path"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// StatsSnapshot is a point-in-time view of batch counters.
type StatsSnapshot struct {
	Total   int           `json:"total"`
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
	Skipped int           `json:"skipped"`
	Elapsed time.Duration `json:"elapsed"`
}

// Summary aggregates a finished (or cancelled) batch run.
type Summary struct {
	Stats     StatsSnapshot `json:"stats"`
	Files     []FileResult  `json:"files"`
	Cancelled bool          `json:"cancelled"`
}
