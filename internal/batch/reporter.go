package batch

// Reporter receives progress events and log lines from a running job.
// It is a pure sink: implementations perform no business logic, must be
// safe to call from any worker goroutine, and own any hand-off to a
// presentation thread.
type Reporter interface {
	// Progress reports that current of total items have completed; verb
	// names the operation ("Compressing", "Verifying").
	Progress(current, total int, fileName, verb string)
	// Log receives one free-text line.
	Log(line string)
}

// emitProgress forwards a progress event when a reporter is configured.
func emitProgress(r Reporter, current, total int, fileName, verb string) {
	if r != nil {
		r.Progress(current, total, fileName, verb)
	}
}

// emitLog forwards a log line when a reporter is configured.
func emitLog(r Reporter, line string) {
	if r != nil {
		r.Log(line)
	}
}
